package pipeline

import (
	"encoding/json"
	"fmt"
)

// Outlink is the message handed back to the crawler's ingest queue for every
// link discovered on a forwarded page. The gate always emits Retries as zero;
// retry bookkeeping belongs to the crawler.
type Outlink struct {
	Location string `json:"location"`
	Retries  int    `json:"retries"`
}

// EncodeOutlink serializes an Outlink for the recrawl-ingest queue.
func EncodeOutlink(o Outlink) ([]byte, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encode outlink: %w", err)
	}
	return data, nil
}
