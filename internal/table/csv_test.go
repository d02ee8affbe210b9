package table

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"wsntrace/pkg/models"
)

func TestWriteReadCSVRoundTripsCombinedRows(t *testing.T) {
	rows := []models.CombinedRecord{
		{
			Mote:    models.MoteRecord{Time: "00:01.000", MoteID: "ID:2", Message: "Sender ID2 : T:21C, quoted \"x\""},
			Capture: models.CaptureRecord{Timestamp: "1000", Source: "2", Destination: "3", Payload: "15.4 data"},
		},
		{
			Mote: models.MoteRecord{Time: "00:02.000", MoteID: "ID:3", Message: "Forwarded message to root"},
		},
	}

	path := filepath.Join(t.TempDir(), "out", "combined.csv")
	if err := WriteCSV(path, rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Fatalf("round trip mismatch:\nexpected %+v\ngot      %+v", rows, got)
	}
}

func TestWriteEmitsHeader(t *testing.T) {
	var sb strings.Builder
	if err := Write(&sb, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if sb.String() != "Time,Mote ID,Message,Timestamp,Source,Destination,Data\n" {
		t.Fatalf("unexpected header: %q", sb.String())
	}
}

func TestReadNormalizesIdentifiersAndToleratesMissingColumns(t *testing.T) {
	in := "Destination,Source,Extra\n2.0, 1 ,x\n11,3\n"
	rows, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	keys := PairKeys(rows)
	want := []models.PairKey{{Source: "1", Destination: "2"}, {Source: "3", Destination: "11"}}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("expected %v, got %v", want, keys)
	}
	if len(Motes(rows)) != 0 {
		t.Fatalf("expected no mote records without mote columns")
	}
}

func TestReadRequiresSourceAndDestination(t *testing.T) {
	if _, err := Read(strings.NewReader("Time,Source\n1,2\n")); err == nil {
		t.Fatalf("expected error for missing Destination column")
	}
	if _, err := Read(strings.NewReader("")); err == nil {
		t.Fatalf("expected error for empty table")
	}
}
