package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/zhouzirui/concierge/backend/internal/model/speech"
	"github.com/zhouzirui/concierge/backend/internal/service/assistant"
)

// consoleSynthesizer "speaks" by printing. It reports no voices.
type consoleSynthesizer struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *consoleSynthesizer) Speak(_ context.Context, req speech.SpeakRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s %s\n", assistantStyle.Render("assistant>"), req.Text)
	fmt.Fprintln(s.w, metaStyle.Render(fmt.Sprintf("  [%s rate %.1f pitch %.1f]", req.Language, req.Rate, req.Pitch)))
	return nil
}

func (s *consoleSynthesizer) Cancel() {}

func (s *consoleSynthesizer) Voices() []speech.Voice { return nil }

type consoleNavigator struct {
	mu sync.Mutex
	w  io.Writer
}

func (n *consoleNavigator) Navigate(path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.w, effectStyle.Render("-> navigate "+path))
	return nil
}

// immediateScheduler fires navigations right away so output stays in order.
type immediateScheduler struct{}

type firedTimer struct{}

func (firedTimer) Stop() bool { return false }

func (immediateScheduler) AfterFunc(_ time.Duration, f func()) assistant.Timer {
	f()
	return firedTimer{}
}
