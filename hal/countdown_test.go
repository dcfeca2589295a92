package hal

import "testing"

type recorder struct {
	events []string
}

func (r *recorder) Tick()   { r.events = append(r.events, "tick") }
func (r *recorder) Expire() { r.events = append(r.events, "expire") }

func TestManualCountdownFires(t *testing.T) {
	c := NewManualCountdown()
	r := &recorder{}
	c.Bind(r)

	c.Arm(3)
	if got := c.Read(); got != 3 {
		t.Fatalf("Read() = %d, want 3", got)
	}
	c.Advance(2)
	if got := c.Read(); got != 1 {
		t.Fatalf("Read() after 2 ticks = %d, want 1", got)
	}
	c.Advance(1)
	if c.Armed() {
		t.Fatalf("Armed() = true after firing, want false")
	}
	if got := c.Read(); got != 0 {
		t.Fatalf("Read() disarmed = %d, want 0", got)
	}
	want := []string{"tick", "tick", "tick", "expire"}
	if len(r.events) != len(want) {
		t.Fatalf("events = %v, want %v", r.events, want)
	}
	for i := range want {
		if r.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", r.events, want)
		}
	}
	if got := c.Fired(); got != 1 {
		t.Fatalf("Fired() = %d, want 1", got)
	}
	if got := c.Now(); got != 3 {
		t.Fatalf("Now() = %d, want 3", got)
	}
}

func TestManualCountdownArmZeroFiresNextTick(t *testing.T) {
	c := NewManualCountdown()
	r := &recorder{}
	c.Bind(r)

	c.Arm(0)
	c.Advance(1)
	if got := c.Fired(); got != 1 {
		t.Fatalf("Fired() = %d, want 1", got)
	}
}

func TestManualCountdownAdjustAndDisarm(t *testing.T) {
	c := NewManualCountdown()
	r := &recorder{}
	c.Bind(r)

	c.Arm(10)
	c.Advance(4)
	c.Adjust(2)
	c.Advance(2)
	if got := c.Fired(); got != 1 {
		t.Fatalf("Fired() after Adjust = %d, want 1", got)
	}

	c.Arm(5)
	c.Disarm()
	c.Advance(10)
	if got := c.Fired(); got != 1 {
		t.Fatalf("Fired() after Disarm = %d, want 1", got)
	}
}

func TestManualCountdownUnbound(t *testing.T) {
	c := NewManualCountdown()
	c.Arm(1)
	c.Advance(1)
	if got := c.Fired(); got != 1 {
		t.Fatalf("Fired() = %d, want 1", got)
	}
}
