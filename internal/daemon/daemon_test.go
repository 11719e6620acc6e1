package daemon

import (
	"context"
	"testing"
)

func TestDaemonStartStop(t *testing.T) {
	d := newTestDaemon(t, &catalogStub{}, &namesStub{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	status := d.Status()
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.LockFilePath == "" {
		t.Fatal("expected lock file path in status")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to report stopped")
	}
}

func TestDaemonRejectsSecondInstance(t *testing.T) {
	first := newTestDaemon(t, &catalogStub{}, &namesStub{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("start first: %v", err)
	}
	defer first.Stop()

	second, err := New(first.cfg, first.resolver, nil, first.ids, first.results, nil)
	if err != nil {
		t.Fatalf("new second daemon: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be rejected")
	}
}

func TestDaemonStartTwiceFails(t *testing.T) {
	d := newTestDaemon(t, &catalogStub{}, &namesStub{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}
}
