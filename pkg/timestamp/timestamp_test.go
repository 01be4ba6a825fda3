package timestamp

import (
	"testing"
	"time"
)

func TestEpochOffset(t *testing.T) {
	if EpochOffsetSeconds != 631152000 {
		t.Errorf("EpochOffsetSeconds = %d, want 631152000", EpochOffsetSeconds)
	}
	want := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	if !Epoch.Equal(want) {
		t.Errorf("Epoch = %v, want %v", Epoch, want)
	}
}

func TestToMillis(t *testing.T) {
	tests := []struct {
		name string
		sec  int64
		nsec int64
		want int64
	}{
		{"epoch", 0, 0, 631152000000},
		{"one and a half seconds", 1, 500_000_000, 631152001500},
		{"sub-millisecond truncated", 0, 999_999, 631152000000},
		{"just over a millisecond", 0, 1_000_001, 631152000001},
		{"last nanosecond of second", 10, 999_999_999, 631152010999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToMillis(tt.sec, tt.nsec); got != tt.want {
				t.Errorf("ToMillis(%d, %d) = %d, want %d", tt.sec, tt.nsec, got, tt.want)
			}
		})
	}
}

func TestNanoRemainder(t *testing.T) {
	tests := []struct {
		nsec int64
		want int64
	}{
		{0, 0},
		{999_999, 999_999},
		{1_000_000, 0},
		{1_234_567, 234_567},
		{999_999_999, 999_999},
	}

	for _, tt := range tests {
		if got := NanoRemainder(tt.nsec); got != tt.want {
			t.Errorf("NanoRemainder(%d) = %d, want %d", tt.nsec, got, tt.want)
		}
	}
}

func TestSecondsAndNanosFromMillis(t *testing.T) {
	millis := int64(631152001500)

	if got := SecondsFromMillis(millis); got != 1 {
		t.Errorf("SecondsFromMillis(%d) = %d, want 1", millis, got)
	}
	if got := NanosFromMillis(millis, 0); got != 500_000_000 {
		t.Errorf("NanosFromMillis(%d, 0) = %d, want 500000000", millis, got)
	}
	if got := NanosFromMillis(millis, 123_456); got != 500_123_456 {
		t.Errorf("NanosFromMillis(%d, 123456) = %d, want 500123456", millis, got)
	}
}

func TestFullPrecisionRoundTrip(t *testing.T) {
	tests := []struct {
		sec  int64
		nsec uint32
	}{
		{0, 0},
		{1, 1},
		{12345, 999_999_999},
		{1_000_000_000, 123_456_789},
		{int64(^uint32(0)) + 10, 500_000_001},
		{-1, 999_000_000},
	}

	for _, tt := range tests {
		millis := ToMillis(tt.sec, int64(tt.nsec))
		rem := NanoRemainder(int64(tt.nsec))
		got := FromMillis(millis, rem)
		if got.Sec != tt.sec || got.Nsec != tt.nsec {
			t.Errorf("round trip of (%d, %d) = (%d, %d)", tt.sec, tt.nsec, got.Sec, got.Nsec)
		}
	}
}

func TestMillisRoundTrip(t *testing.T) {
	base := EpochOffsetSeconds * MillisPerSecond
	for _, m := range []int64{0, 1, 999, 1000, base - 1, base, base + 1, base + 999, base + 1000, base + 86_400_123, 1_700_000_000_456, 4_294_967_296_000 + base} {
		ts := FromMillis(m, 0)
		if got := ToMillis(ts.Sec, int64(ts.Nsec)); got != m {
			t.Errorf("ToMillis(FromMillis(%d, 0)) = %d", m, got)
		}
	}
}

func TestRemainderSurvivesReconstruction(t *testing.T) {
	for _, r := range []int64{0, 1, 500_000, 999_999} {
		if got := NanoRemainder(NanosFromMillis(1_700_000_000_456, r)); got != r {
			t.Errorf("NanoRemainder(NanosFromMillis(m, %d)) = %d", r, got)
		}
	}
}

func TestFromTime(t *testing.T) {
	t.Run("after epoch", func(t *testing.T) {
		in := time.Date(2024, 3, 1, 12, 0, 0, 42, time.UTC)
		ts := FromTime(in)
		if !ts.Time().Equal(in) {
			t.Errorf("Time() = %v, want %v", ts.Time(), in)
		}
		if ts.Millis() != in.UnixMilli() {
			t.Errorf("Millis() = %d, want %d", ts.Millis(), in.UnixMilli())
		}
		if ts.NanoRemainder() != 42 {
			t.Errorf("NanoRemainder() = %d, want 42", ts.NanoRemainder())
		}
	})

	t.Run("before epoch", func(t *testing.T) {
		in := time.Date(1985, 6, 1, 0, 0, 0, 7_000_000, time.UTC)
		ts := FromTime(in)
		if ts.Sec >= 0 {
			t.Errorf("FromTime(1985).Sec = %d, want negative", ts.Sec)
		}
		if !ts.Time().Equal(in) {
			t.Errorf("Time() = %v, want %v", ts.Time(), in)
		}
		if got := FromMillis(in.UnixMilli(), 0); got != ts {
			t.Errorf("FromMillis = %v, FromTime = %v", got, ts)
		}
	})

	t.Run("unix epoch", func(t *testing.T) {
		ts := FromTime(time.Unix(0, 0))
		if ts.Sec != -EpochOffsetSeconds || ts.Millis() != 0 {
			t.Errorf("FromTime(1970) = %v, millis %d", ts, ts.Millis())
		}
	})

	t.Run("epoch is zero", func(t *testing.T) {
		if !FromTime(Epoch).IsZero() {
			t.Error("FromTime(Epoch) should be zero")
		}
	})
}

func TestCompare(t *testing.T) {
	a := Timestamp{Sec: 10, Nsec: 5}
	b := Timestamp{Sec: 10, Nsec: 6}
	c := Timestamp{Sec: 11, Nsec: 0}

	if !a.Before(b) || !b.Before(c) || !a.Before(c) {
		t.Error("expected a < b < c")
	}
	if !c.After(a) {
		t.Error("expected c > a")
	}
	if a.Compare(a) != 0 {
		t.Error("expected a == a")
	}
	if b.After(c) {
		t.Error("b should not be after c")
	}
}

func TestManualClock(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewManualClock(start)

	if !clock.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", clock.Now(), start)
	}

	clock.Advance(1500 * time.Millisecond)
	if got := FromTime(clock.Now()).Millis() - FromTime(start).Millis(); got != 1500 {
		t.Errorf("advanced %d ms, want 1500", got)
	}

	later := start.Add(time.Hour)
	clock.Set(later)
	if !clock.Now().Equal(later) {
		t.Errorf("Now() after Set = %v, want %v", clock.Now(), later)
	}
}
