package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	MaxActions       = 20
	DefaultWaitTotal = 30 * time.Second
)

// ActionType identifies one browser interaction step.
type ActionType string

const (
	ActionNavigate ActionType = "navigate"
	ActionWait     ActionType = "wait"
	ActionInput    ActionType = "input"
	ActionClick    ActionType = "click"
)

// Action is one step in a bounded browser interaction sequence.
type Action struct {
	Type         ActionType `json:"type"`
	Selector     string     `json:"selector,omitempty"`
	Text         string     `json:"text,omitempty"`
	Milliseconds int        `json:"milliseconds,omitempty"`
	URL          string     `json:"url,omitempty"`
}

// Job describes one scrape: a target URL, an optional action sequence and a
// total wait budget that caps the sum of all wait steps.
type Job struct {
	URL        string
	Actions    []Action
	WaitBudget time.Duration
}

// Validate rejects unbounded jobs before any browser work starts.
func (j Job) Validate() error {
	if strings.TrimSpace(j.URL) == "" {
		return fmt.Errorf("scrape job requires a url")
	}
	if len(j.Actions) > MaxActions {
		return fmt.Errorf("scrape job exceeds %d actions", MaxActions)
	}
	budget := j.WaitBudget
	if budget <= 0 {
		budget = DefaultWaitTotal
	}
	var total time.Duration
	for _, a := range j.Actions {
		if a.Type == ActionWait {
			total += time.Duration(a.Milliseconds) * time.Millisecond
		}
	}
	if total > budget {
		return fmt.Errorf("scrape job wait steps (%s) exceed budget (%s)", total, budget)
	}
	return nil
}

// Document is the normalized output of one scrape.
type Document struct {
	URL      string
	Title    string
	Text     string // readable text or markdown, depending on the backend
	HTML     string
	HTMLHash string
	Status   int
	RenderMS int
}
