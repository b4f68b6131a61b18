package repository

import (
	"context"

	"github.com/tutorhive/backend/internal/models"
)

type TopicRepository struct {
	db DBTX
}

func NewTopicRepository(db DBTX) *TopicRepository {
	return &TopicRepository{db: db}
}

func (r *TopicRepository) GetByID(ctx context.Context, id int64) (*models.Topic, error) {
	var topic models.Topic
	err := r.db.QueryRow(ctx, `SELECT id, name FROM topics WHERE id = $1`, id).Scan(&topic.ID, &topic.Name)
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *TopicRepository) List(ctx context.Context) ([]models.Topic, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM topics ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []models.Topic
	for rows.Next() {
		var topic models.Topic
		if err := rows.Scan(&topic.ID, &topic.Name); err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}
