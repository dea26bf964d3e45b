package http

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type RoomItem struct {
	RoomID       string `json:"roomId"`
	Participants int    `json:"participants"`
}

type RoomsListResponse struct {
	Items []RoomItem `json:"items"`
}

type ParticipantItem struct {
	ConnectionID    string    `json:"connectionId"`
	DisplayIdentity string    `json:"displayIdentity"`
	JoinedAt        time.Time `json:"joinedAt"`
}

type ParticipantsResponse struct {
	Items []ParticipantItem `json:"items"`
}
