package spool

import (
	"context"
	"fmt"
	"image"

	"github.com/nixxel-company-limited/pdf-print-server/printerr"
)

// JobState is the lifecycle position of a PrintJob.
type JobState int

const (
	StateIdle JobState = iota
	StateJobOpen
	StatePageOpen
	StatePageClosed
	StateJobClosed
)

func (s JobState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateJobOpen:
		return "job-open"
	case StatePageOpen:
		return "page-open"
	case StatePageClosed:
		return "page-closed"
	case StateJobClosed:
		return "job-closed"
	default:
		return fmt.Sprintf("JobState(%d)", int(s))
	}
}

// PrintJob is one open spooler session. It enforces the page lifecycle order and
// guarantees the device handle is released exactly once.
type PrintJob struct {
	DocumentName string
	DPIX, DPIY   int

	doc       Document
	state     JobState
	pages     int
	committed bool
}

// OpenJob starts a document on spooler and queries the device resolution.
func OpenJob(ctx context.Context, spooler Spooler, name string) (*PrintJob, error) {
	doc, err := spooler.StartDoc(ctx, name)
	if err != nil {
		return nil, printerr.Wrap(printerr.DeviceError, "failed to open print job", err)
	}

	dpiX, dpiY := doc.Resolution()
	if dpiX <= 0 || dpiY <= 0 {
		doc.Close()
		return nil, printerr.New(printerr.DeviceError,
			fmt.Sprintf("device reported invalid resolution %dx%d", dpiX, dpiY), nil)
	}

	return &PrintJob{
		DocumentName: name,
		DPIX:         dpiX,
		DPIY:         dpiY,
		doc:          doc,
		state:        StateJobOpen,
	}, nil
}

// State returns the current lifecycle state.
func (j *PrintJob) State() JobState {
	return j.state
}

// Pages returns the number of pages completed so far.
func (j *PrintJob) Pages() int {
	return j.pages
}

// Committed reports whether the document was handed to the spooler with EndDoc.
func (j *PrintJob) Committed() bool {
	return j.committed
}

func (j *PrintJob) transition(op string, to JobState, allowed ...JobState) error {
	for _, s := range allowed {
		if j.state == s {
			j.state = to
			return nil
		}
	}
	return printerr.New(printerr.DeviceError,
		fmt.Sprintf("%s not allowed in state %s", op, j.state), nil)
}

// StartPage opens a new page.
func (j *PrintJob) StartPage() error {
	if err := j.transition("start page", StatePageOpen, StateJobOpen, StatePageClosed); err != nil {
		return err
	}
	if err := j.doc.StartPage(); err != nil {
		return printerr.Wrap(printerr.DeviceError, fmt.Sprintf("failed to start page %d", j.pages+1), err)
	}
	return nil
}

// SubmitPage draws img over dst on the open page.
func (j *PrintJob) SubmitPage(img image.Image, dst image.Rectangle) error {
	if j.state != StatePageOpen {
		return printerr.New(printerr.DeviceError,
			fmt.Sprintf("submit page not allowed in state %s", j.state), nil)
	}
	if err := j.doc.DrawImage(img, dst); err != nil {
		return printerr.Wrap(printerr.DeviceError, fmt.Sprintf("failed to submit page %d", j.pages+1), err)
	}
	return nil
}

// EndPage closes the open page.
func (j *PrintJob) EndPage() error {
	if err := j.transition("end page", StatePageClosed, StatePageOpen); err != nil {
		return err
	}
	if err := j.doc.EndPage(); err != nil {
		return printerr.Wrap(printerr.DeviceError, fmt.Sprintf("failed to end page %d", j.pages+1), err)
	}
	j.pages++
	return nil
}

// Finish commits the document. At least one page must have been completed.
func (j *PrintJob) Finish() error {
	if j.state != StatePageClosed {
		return printerr.New(printerr.DeviceError,
			fmt.Sprintf("finish not allowed in state %s", j.state), nil)
	}
	if err := j.doc.EndDoc(); err != nil {
		return printerr.Wrap(printerr.DeviceError, "failed to end document", err)
	}
	j.committed = true
	return nil
}

// Release closes the device handle. It is safe to call more than once; only the first
// call reaches the device.
func (j *PrintJob) Release() error {
	if j.state == StateJobClosed {
		return nil
	}
	j.state = StateJobClosed
	if err := j.doc.Close(); err != nil {
		return printerr.Wrap(printerr.DeviceError, "failed to release print job", err)
	}
	return nil
}
