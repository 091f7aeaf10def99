package models

import "time"

// Interaction is one answered question. Interactions are append-only.
type Interaction struct {
	ID           string    `json:"id" msgpack:"id" firestore:"id"`
	Timestamp    time.Time `json:"timestamp" msgpack:"timestamp" firestore:"timestamp"`
	PDFReference string    `json:"pdfReference" msgpack:"pdfReference" firestore:"pdfReference"`
	Query        string    `json:"query" msgpack:"query" firestore:"query"`
	Response     string    `json:"response" msgpack:"response" firestore:"response"`
}
