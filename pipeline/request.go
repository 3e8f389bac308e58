package pipeline

// Request carries a JSON lines batch of rows. Tid identifies the task in logs and responses.
type Request struct {
	Text string `json:"text"`
	Tid  string `json:"tid"`
}
