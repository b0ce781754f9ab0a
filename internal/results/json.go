package results

import (
	"encoding/json"
	"io"
	"math"

	"github.com/five82/rdsweep/internal/util"
)

type jsonScore struct {
	Scorer string `json:"scorer"`
	Mean   any    `json:"mean"`
	Count  int    `json:"count"`
}

type jsonCell struct {
	Resolution  string      `json:"resolution"`
	Bitrate     string      `json:"bitrate"`
	Scores      []jsonScore `json:"scores"`
	FailedStage string      `json:"failed_stage,omitempty"`
	Failure     string      `json:"failure,omitempty"`
}

type jsonTable struct {
	Resolutions []string   `json:"resolutions"`
	Bitrates    []string   `json:"bitrates"`
	Scorers     []string   `json:"scorers"`
	Complete    bool       `json:"complete"`
	Cells       []jsonCell `json:"cells"`
}

// jsonMean renders a mean as a number, null for an empty series, or a string
// for non-finite values JSON cannot carry.
func jsonMean(s Score) any {
	if s.Null() {
		return nil
	}
	if math.IsInf(s.Mean, 0) || math.IsNaN(s.Mean) {
		return util.FormatScore(s.Mean)
	}
	return s.Mean
}

// MarshalJSON implements json.Marshaler.
func (t *Table) MarshalJSON() ([]byte, error) {
	out := jsonTable{
		Scorers:  t.Scorers,
		Complete: t.Complete(),
		Cells:    make([]jsonCell, 0, len(t.order)),
	}
	for _, r := range t.Resolutions {
		out.Resolutions = append(out.Resolutions, r.String())
	}
	for _, b := range t.Bitrates {
		out.Bitrates = append(out.Bitrates, b.String())
	}
	for _, r := range t.Rows() {
		c := jsonCell{
			Resolution:  r.Cell.Resolution.String(),
			Bitrate:     r.Cell.Bitrate.String(),
			FailedStage: string(r.FailedStage),
			Failure:     r.Failure,
		}
		for _, s := range t.Scorers {
			score := r.Score(s)
			c.Scores = append(c.Scores, jsonScore{Scorer: s, Mean: jsonMean(score), Count: score.Count})
		}
		out.Cells = append(out.Cells, c)
	}
	return json.Marshal(out)
}

// WriteJSON writes an indented snapshot of the table.
func (t *Table) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}
