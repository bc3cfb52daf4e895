package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
)

type playResponse struct {
	Plays   int64 `json:"plays"`
	Counted bool  `json:"counted"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "play-service base URL")
	trackID := flag.String("track", "", "track id to play (required)")
	repeats := flag.Int("n", 3, "plays per listener")
	flag.Parse()

	if *trackID == "" {
		log.Fatal("-track is required")
	}

	listenerID := uuid.New()

	fmt.Printf("Listener %s playing track %s %d times\n", listenerID, *trackID, *repeats)
	for i := 0; i < *repeats; i++ {
		resp := recordPlay(*baseURL, *trackID, &listenerID)
		fmt.Printf("  play %d: plays=%d counted=%v\n", i+1, resp.Plays, resp.Counted)
	}

	fmt.Println("Anonymous plays (never deduplicated)")
	for i := 0; i < *repeats; i++ {
		resp := recordPlay(*baseURL, *trackID, nil)
		fmt.Printf("  play %d: plays=%d counted=%v\n", i+1, resp.Plays, resp.Counted)
	}
}

func recordPlay(baseURL, trackID string, listenerID *uuid.UUID) *playResponse {
	var body bytes.Buffer
	if listenerID != nil {
		if err := json.NewEncoder(&body).Encode(map[string]string{"listenerId": listenerID.String()}); err != nil {
			log.Fatalf("Failed to encode request: %v", err)
		}
	}

	resp, err := http.Post(
		fmt.Sprintf("%s/tracks/%s/play", baseURL, trackID),
		"application/json",
		&body,
	)
	if err != nil {
		log.Fatalf("Failed to send play: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Unexpected status: %s", resp.Status)
	}

	var out playResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Fatalf("Failed to decode response: %v", err)
	}

	return &out
}
