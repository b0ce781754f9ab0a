package results

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/five82/rdsweep/internal/grid"
)

var (
	r640  = grid.Resolution{Width: 640, Height: 480}
	r320  = grid.Resolution{Width: 320, Height: 240}
	b1000 = grid.Bitrate(1000)
	b2000 = grid.Bitrate(2000)
)

func cell(res grid.Resolution, br grid.Bitrate, scores ...Score) CellResult {
	return CellResult{Cell: grid.Cell{Resolution: res, Bitrate: br}, Scores: scores}
}

func TestSeriesMean(t *testing.T) {
	var s Series
	if _, ok := s.Mean(); ok {
		t.Error("Mean() of empty series should report false")
	}
	if sum := s.Summary("psnr"); !sum.Null() {
		t.Errorf("Summary() of empty series = %+v, want null", sum)
	}

	for _, v := range []float64{1, 2, 3, 4} {
		s.Add(v)
	}
	mean, ok := s.Mean()
	if !ok || mean != 2.5 {
		t.Errorf("Mean() = %v, %v; want 2.5, true", mean, ok)
	}
	if s.Len() != 4 || len(s.Values()) != 4 {
		t.Errorf("Len() = %d, want 4", s.Len())
	}
}

func TestSeriesMeanZeroIsNotNull(t *testing.T) {
	var s Series
	s.Add(0)
	sum := s.Summary("ssim")
	if sum.Null() || sum.Mean != 0 || sum.Count != 1 {
		t.Errorf("Summary() = %+v, want a real zero", sum)
	}
}

func TestSeriesMeanInf(t *testing.T) {
	var s Series
	for i := 0; i < 10; i++ {
		s.Add(math.Inf(1))
	}
	mean, _ := s.Mean()
	if !math.IsInf(mean, 1) {
		t.Errorf("Mean() = %v, want +Inf", mean)
	}
}

func TestTableRecord(t *testing.T) {
	tab := NewTable([]grid.Resolution{r640, r320}, []grid.Bitrate{b1000}, []string{"psnr"})

	if err := tab.Record(cell(r640, b1000, Score{Scorer: "psnr", Mean: 40, Count: 3})); err != nil {
		t.Fatal(err)
	}
	if err := tab.Record(cell(r640, b1000)); err == nil {
		t.Error("recording a cell twice should fail")
	}
	if tab.Complete() {
		t.Error("Complete() = true with one of two cells")
	}
	if err := tab.Record(cell(r320, b1000)); err != nil {
		t.Fatal(err)
	}
	if !tab.Complete() || tab.Len() != 2 {
		t.Errorf("Complete() = %v, Len() = %d", tab.Complete(), tab.Len())
	}

	got, ok := tab.Cell(r640, b1000)
	if !ok || got.Score("psnr").Mean != 40 {
		t.Errorf("Cell() = %+v, %v", got, ok)
	}
	if _, ok := tab.Cell(r640, b2000); ok {
		t.Error("Cell() found an unrecorded cell")
	}
	if tab.NullCount("psnr") != 1 {
		t.Errorf("NullCount() = %d, want 1", tab.NullCount("psnr"))
	}

	rows := tab.Rows()
	if rows[0].Cell.Resolution != r640 || rows[1].Cell.Resolution != r320 {
		t.Error("Rows() not in record order")
	}
}

func TestTableEqual(t *testing.T) {
	build := func(mean float64) *Table {
		tab := NewTable([]grid.Resolution{r640}, []grid.Bitrate{b1000, b2000}, []string{"psnr"})
		_ = tab.Record(cell(r640, b1000, Score{Scorer: "psnr", Mean: mean, Count: 10}))
		_ = tab.Record(cell(r640, b2000, Score{Scorer: "psnr", Mean: math.Inf(1), Count: 10}))
		return tab
	}

	if !build(35).Equal(build(35)) {
		t.Error("identical tables should be equal")
	}
	if build(35).Equal(build(36)) {
		t.Error("tables with different means should differ")
	}
	if build(35).Equal(nil) {
		t.Error("Equal(nil) should be false")
	}

	a := NewTable([]grid.Resolution{r640}, []grid.Bitrate{b1000}, []string{"ssim"})
	b := NewTable([]grid.Resolution{r640}, []grid.Bitrate{b1000}, []string{"ssim"})
	_ = a.Record(cell(r640, b1000, Score{Scorer: "ssim", Mean: 0.3}))
	_ = b.Record(cell(r640, b1000, Score{Scorer: "ssim", Mean: 0.7}))
	if !a.Equal(b) {
		t.Error("null scores should compare equal regardless of Mean")
	}
}

func TestLineLog(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLineLog(&buf, "psnr")
	if err != nil {
		t.Fatal(err)
	}
	if buf.String() != "resolution, bitrate, psnr\n" {
		t.Fatalf("header = %q", buf.String())
	}

	_ = l.WriteCell(cell(r640, b1000, Score{Scorer: "psnr", Mean: 38.5, Count: 10}))
	_ = l.WriteCell(cell(r640, b2000))
	_ = l.WriteCell(cell(r320, b2000, Score{Scorer: "psnr", Mean: math.Inf(1), Count: 2}))

	want := "resolution, bitrate, psnr\n" +
		"640x480, 1000k, 38.5\n" +
		"640x480, 2000k, null\n" +
		"320x240, 2000k, inf\n"
	if buf.String() != want {
		t.Errorf("log =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestGridCSV(t *testing.T) {
	var buf bytes.Buffer
	g, err := NewGridCSV(&buf, "ssim", []grid.Resolution{r640, r320})
	if err != nil {
		t.Fatal(err)
	}
	if buf.String() != ",640x480,320x240\n" {
		t.Fatalf("header = %q", buf.String())
	}

	_ = g.WriteCell(cell(r640, b1000, Score{Scorer: "ssim", Mean: 0.9, Count: 5}))
	if strings.Count(buf.String(), "\n") != 1 {
		t.Error("row written before it was complete")
	}
	_ = g.WriteCell(cell(r320, b1000))
	if strings.Count(buf.String(), "\n") != 2 {
		t.Error("complete row was not flushed")
	}

	// Interrupted after one cell of the second row.
	_ = g.WriteCell(cell(r640, b2000, Score{Scorer: "ssim", Mean: 0.95, Count: 5}))
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("partial grid is not readable CSV: %v", err)
	}
	want := [][]string{
		{"", "640x480", "320x240"},
		{"1000k", "0.9", ""},
		{"2000k", "0.95", ""},
	}
	if len(records) != len(want) {
		t.Fatalf("records = %v", records)
	}
	for i := range want {
		for j := range want[i] {
			if records[i][j] != want[i][j] {
				t.Errorf("records[%d][%d] = %q, want %q", i, j, records[i][j], want[i][j])
			}
		}
	}
}

func TestGridCSVUnknownColumn(t *testing.T) {
	g, err := NewGridCSV(&bytes.Buffer{}, "ssim", []grid.Resolution{r640})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.WriteCell(cell(r320, b1000)); err == nil {
		t.Error("WriteCell() should reject a resolution outside the grid")
	}
}

func TestOpenFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := OpenFiles(dir, []string{"psnr", "ssim"}, []grid.Resolution{r640})
	if err != nil {
		t.Fatal(err)
	}
	if len(w) != 2 {
		t.Fatalf("OpenFiles() returned %d writers, want 2", len(w))
	}
	if err := w.WriteCell(cell(r640, b1000,
		Score{Scorer: "psnr", Mean: 30, Count: 1},
		Score{Scorer: "ssim", Mean: 0.5, Count: 1})); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	logData, err := os.ReadFile(filepath.Join(dir, LineLogName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(logData), "640x480, 1000k, 30\n") {
		t.Errorf("log = %q", logData)
	}
	gridData, err := os.ReadFile(filepath.Join(dir, GridCSVName))
	if err != nil {
		t.Fatal(err)
	}
	if string(gridData) != ",640x480\n1000k,0.5\n" {
		t.Errorf("grid = %q", gridData)
	}
}

func TestWriteJSON(t *testing.T) {
	tab := NewTable([]grid.Resolution{r640}, []grid.Bitrate{b1000, b2000}, []string{"psnr"})
	_ = tab.Record(cell(r640, b1000, Score{Scorer: "psnr", Mean: math.Inf(1), Count: 10}))
	failed := cell(r640, b2000)
	failed.FailedStage = StageEncode
	failed.Failure = "exit status 1"
	_ = tab.Record(failed)

	var buf bytes.Buffer
	if err := tab.WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Complete bool `json:"complete"`
		Cells    []struct {
			Bitrate     string `json:"bitrate"`
			FailedStage string `json:"failed_stage"`
			Scores      []struct {
				Mean  any `json:"mean"`
				Count int `json:"count"`
			} `json:"scores"`
		} `json:"cells"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	if !decoded.Complete || len(decoded.Cells) != 2 {
		t.Fatalf("decoded = %+v", decoded)
	}
	if decoded.Cells[0].Scores[0].Mean != "inf" {
		t.Errorf("inf mean = %v, want \"inf\"", decoded.Cells[0].Scores[0].Mean)
	}
	if decoded.Cells[1].Scores[0].Mean != nil || decoded.Cells[1].FailedStage != "encode" {
		t.Errorf("null cell = %+v", decoded.Cells[1])
	}
}
