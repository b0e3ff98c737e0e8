package store

import "testing"

func TestUpsertFirstObservation(t *testing.T) {
	s := New()

	rec := Record{ClientID: "kiwi", ClientTime: 100, Line: "AT Alpha +0.000000 kiwi +1.0-1.0 100"}
	if !s.Upsert(rec) {
		t.Fatal("expected first observation to be accepted")
	}

	got, ok := s.Get("kiwi")
	if !ok || got.ClientTime != 100 {
		t.Fatalf("got %+v, ok=%v", got, ok)
	}
}

func TestUpsertStrictInequality(t *testing.T) {
	s := New()
	s.Upsert(Record{ClientID: "kiwi", ClientTime: 100})

	if s.Upsert(Record{ClientID: "kiwi", ClientTime: 100}) {
		t.Fatal("equal client_time must not replace the stored record")
	}
	if s.Upsert(Record{ClientID: "kiwi", ClientTime: 50}) {
		t.Fatal("smaller client_time must not replace the stored record")
	}
	if !s.Upsert(Record{ClientID: "kiwi", ClientTime: 150}) {
		t.Fatal("strictly greater client_time must replace the stored record")
	}
}

func TestUpsertMonotonicityUnderAnyArrivalOrder(t *testing.T) {
	s := New()
	times := []float64{10, 30, 5, 40, 20}

	for _, ts := range times {
		s.Upsert(Record{ClientID: "fig", ClientTime: ts})
	}

	got, _ := s.Get("fig")
	if got.ClientTime != 40 {
		t.Fatalf("expected max(times)=40, got %v", got.ClientTime)
	}
}
