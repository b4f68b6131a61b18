package meeting

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestChecksumSignsActionQueryAndSecret(t *testing.T) {
	b := NewBigBlueButton("https://bbb.test/api/", "s3cret")
	query := "meetingID=lesson-31&name=Maths"

	sum := sha1.Sum([]byte("create" + query + "s3cret"))
	want := hex.EncodeToString(sum[:])

	if got := b.checksum("create", query); got != want {
		t.Fatalf("checksum = %s, want %s", got, want)
	}
}

func TestJoinURLCarriesChecksum(t *testing.T) {
	b := NewBigBlueButton("https://bbb.test/api/", "s3cret")

	joinURL := b.JoinURL("lesson-31", "Sam K", "att")
	if !strings.HasPrefix(joinURL, "https://bbb.test/api/join?") {
		t.Fatalf("unexpected join url %q", joinURL)
	}
	if !strings.Contains(joinURL, "meetingID=lesson-31") {
		t.Fatalf("expected meeting id in %q", joinURL)
	}
	if !strings.Contains(joinURL, "fullName=Sam+K") {
		t.Fatalf("expected full name in %q", joinURL)
	}
	if !strings.Contains(joinURL, "&checksum=") {
		t.Fatalf("expected checksum in %q", joinURL)
	}
}

func TestCreateRoomParsesSuccessResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/create") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("checksum") == "" {
			t.Error("expected checksum parameter")
		}
		w.Write([]byte(`<response>
			<returncode>SUCCESS</returncode>
			<meetingID>lesson-31</meetingID>
			<moderatorPW>mod</moderatorPW>
			<attendeePW>att</attendeePW>
		</response>`))
	}))
	defer server.Close()

	b := NewBigBlueButton(server.URL+"/api/", "s3cret")
	room, err := b.CreateRoom(context.Background(), "lesson-31", "Maths lesson", 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if room.ModeratorPW != "mod" || room.AttendeePW != "att" {
		t.Fatalf("unexpected room %+v", room)
	}
}

func TestCreateRoomToleratesExistingRoom(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<response>
			<returncode>FAILED</returncode>
			<messageKey>idNotUnique</messageKey>
			<message>A meeting already exists with that meeting ID.</message>
			<moderatorPW>mod</moderatorPW>
			<attendeePW>att</attendeePW>
		</response>`))
	}))
	defer server.Close()

	b := NewBigBlueButton(server.URL+"/api/", "s3cret")
	room, err := b.CreateRoom(context.Background(), "lesson-31", "Maths lesson", 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if room.MeetingID != "lesson-31" {
		t.Fatalf("unexpected room %+v", room)
	}
}

func TestCreateRoomReturnsServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<response>
			<returncode>FAILED</returncode>
			<messageKey>checksumError</messageKey>
			<message>Checksums do not match</message>
		</response>`))
	}))
	defer server.Close()

	b := NewBigBlueButton(server.URL+"/api/", "wrong")
	if _, err := b.CreateRoom(context.Background(), "lesson-31", "Maths lesson", 90); err == nil {
		t.Fatal("expected error for failed create")
	}
}
