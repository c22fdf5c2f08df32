package databind

import (
	"strings"
)

// Severity orders statuses from harmless to fatal.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityCancel
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "OK"
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCancel:
		return "CANCEL"
	default:
		return "UNKNOWN"
	}
}

// Status is the outcome of a validation or propagation step. A status with
// children is a multi-status: its severity is the highest of its children.
type Status struct {
	Severity Severity
	Message  string
	Err      error
	Children []Status
}

// OKStatus is the status of a step that went fine.
func OKStatus() Status {
	return Status{Severity: SeverityOK}
}

func InfoStatus(message string) Status {
	return Status{Severity: SeverityInfo, Message: message}
}

func WarningStatus(message string) Status {
	return Status{Severity: SeverityWarning, Message: message}
}

func ErrorStatus(message string, err error) Status {
	return Status{Severity: SeverityError, Message: message, Err: err}
}

func CancelStatus(message string) Status {
	return Status{Severity: SeverityCancel, Message: message}
}

func (s Status) IsOK() bool {
	return s.Severity == SeverityOK
}

func (s Status) IsMulti() bool {
	return len(s.Children) > 0
}

// Merge adds child to s if it isn't OK. The merged status takes the
// child's severity and message when the child is more severe.
func (s *Status) Merge(child Status) {
	if child.IsOK() {
		return
	}

	s.Children = append(s.Children, child)
	if child.Severity > s.Severity {
		s.Severity = child.Severity
		s.Message = child.Message
		s.Err = child.Err
	}
}

// mergeStatus merges status into multi and reports whether propagation may go on.
func mergeStatus(multi *Status, status Status) bool {
	multi.Merge(status)
	return multi.Severity < SeverityError
}

func (s Status) Error() string {
	var b strings.Builder
	b.WriteString(s.Severity.String())

	if s.Message != "" {
		b.WriteString(": ")
		b.WriteString(s.Message)
	}
	if s.Err != nil {
		b.WriteString(": ")
		b.WriteString(s.Err.Error())
	}

	return b.String()
}

// AsError returns nil for statuses below SeverityError, the status itself otherwise.
func (s Status) AsError() error {
	if s.Severity < SeverityError {
		return nil
	}

	return s
}

func (s Status) String() string {
	return s.Error()
}

func (s Status) Unwrap() error {
	return s.Err
}
