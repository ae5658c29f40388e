package model

import "testing"

func TestDirection(t *testing.T) {
	if !DirectionOn.Valid() || !DirectionOff.Valid() || Direction(7).Valid() {
		t.Fatal("unexpected direction validity")
	}
	if DirectionOn.String() != "on" || DirectionOff.String() != "off" || Direction(7).String() != "invalid" {
		t.Fatal("unexpected direction names")
	}
}

func TestPresumedState(t *testing.T) {
	if !PresumedOn.Matches(DirectionOn) || PresumedOn.Matches(DirectionOff) {
		t.Fatal("PresumedOn matching wrong")
	}
	if PresumedUnknown.Matches(DirectionOn) || PresumedUnknown.Matches(DirectionOff) {
		t.Fatal("unknown state must never match")
	}
	if PresumedFor(DirectionOff) != PresumedOff || PresumedFor(DirectionOn) != PresumedOn {
		t.Fatal("PresumedFor mapping wrong")
	}
}

func TestDeviceValidate(t *testing.T) {
	tests := []struct {
		name string
		dev  Device
		ok   bool
	}{
		{"gen1", Device{Name: "a", ExpectedPowerWatts: 100, Endpoint: Gen1Relay{Address: "10.0.0.2"}}, true},
		{"gen2", Device{Name: "a", Endpoint: Gen2Switch{Address: "10.0.0.2", ID: 1}}, true},
		{"mqtt", Device{Name: "a", Endpoint: MQTTSwitch{Topic: "a/set"}}, true},
		{"no name", Device{Endpoint: MQTTSwitch{Topic: "a/set"}}, false},
		{"negative power", Device{Name: "a", ExpectedPowerWatts: -1, Endpoint: MQTTSwitch{Topic: "t"}}, false},
		{"no endpoint", Device{Name: "a"}, false},
		{"gen1 no address", Device{Name: "a", Endpoint: Gen1Relay{}}, false},
		{"gen1 negative channel", Device{Name: "a", Endpoint: Gen1Relay{Address: "x", Channel: -1}}, false},
		{"gen2 negative id", Device{Name: "a", Endpoint: Gen2Switch{Address: "x", ID: -1}}, false},
		{"mqtt no topic", Device{Name: "a", Endpoint: MQTTSwitch{}}, false},
	}
	for _, tt := range tests {
		err := tt.dev.Validate()
		if (err == nil) != tt.ok {
			t.Errorf("%s: unexpected result %v", tt.name, err)
		}
	}
}

func TestManaged(t *testing.T) {
	if (Device{ExpectedPowerWatts: 0}).Managed() {
		t.Fatal("zero power device must not be managed")
	}
	if !(Device{ExpectedPowerWatts: 1}).Managed() {
		t.Fatal("device with power must be managed")
	}
}

func TestAllocationHelpers(t *testing.T) {
	a := Allocation{
		Assignments: []Assignment{
			{Device: "boiler", Direction: DirectionOn},
			{Device: "heater", Direction: DirectionOff},
		},
		ExpectedPowerDraw: 1000,
	}
	if got := a.String(); got != "boiler=on,heater=off (1000W)" {
		t.Fatalf("unexpected string %q", got)
	}
	if on := a.On(); len(on) != 1 || on[0] != "boiler" {
		t.Fatalf("unexpected on list %v", on)
	}
	if d, ok := a.Direction("heater"); !ok || d != DirectionOff {
		t.Fatal("heater direction lookup failed")
	}
	if _, ok := a.Direction("lamp"); ok {
		t.Fatal("lamp must not be found")
	}
	p := PendingTransition{Target: a, Step: StepUp}
	if p.TargetDraw() != 1000 || p.Step.String() != "up" || StepDown.String() != "down" {
		t.Fatal("pending transition helpers wrong")
	}
}
