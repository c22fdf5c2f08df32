package databind

// MultiValidator is a ValidationStatusProvider whose status is computed from
// any number of observables, e.g. to check that two fields agree.
// The observables read by validate are its targets.
type MultiValidator struct {
	realm  Realm
	status *ComputedValue[Status]

	disposed bool
}

var _ ValidationStatusProvider = (*MultiValidator)(nil)

func NewMultiValidator(realm Realm, validate func() Status) *MultiValidator {
	m := &MultiValidator{realm: realm}

	RunAndIgnore(func() {
		m.status = NewComputedValue(realm, validate)
	})

	return m
}

func (m *MultiValidator) ValidationStatus() ObservableValue[Status] {
	return m.status
}

// Targets returns the observables read by the last validation.
func (m *MultiValidator) Targets() []Observable {
	Untrack(m.status.Value)
	return m.status.Dependencies()
}

func (m *MultiValidator) Models() []Observable {
	return nil
}

func (m *MultiValidator) IsDisposed() bool {
	return m.disposed
}

func (m *MultiValidator) Dispose() {
	checkRealm(m.realm)
	if m.disposed {
		return
	}
	m.disposed = true

	m.status.Dispose()
}

// AggregateStrategy decides how AggregateValidationStatus combines statuses.
type AggregateStrategy int

const (
	// AggregateMaxSeverity picks the first of the most severe statuses.
	AggregateMaxSeverity AggregateStrategy = iota

	// AggregateMerged merges every non-OK status into a multi-status.
	AggregateMerged
)

// AggregateValidationStatus is the status of all the validation status
// providers of c, kept up to date as providers come and go and their
// statuses change.
func AggregateValidationStatus(c *DataBindingContext, strategy AggregateStrategy) *ComputedValue[Status] {
	var aggregate *ComputedValue[Status]

	RunAndIgnore(func() {
		aggregate = NewComputedValue(c.realm, func() Status {
			providers := c.providers.Elements()

			statuses := make([]Status, 0, len(providers))
			for _, p := range providers {
				statuses = append(statuses, p.ValidationStatus().Value())
			}

			if strategy == AggregateMerged {
				return mergedStatus(statuses)
			}
			return maxSeverityStatus(statuses)
		})
	})

	return aggregate
}

func maxSeverityStatus(statuses []Status) Status {
	worst := OKStatus()
	for _, s := range statuses {
		if s.Severity > worst.Severity {
			worst = s
		}
	}

	return worst
}

func mergedStatus(statuses []Status) Status {
	merged := OKStatus()
	for _, s := range statuses {
		merged.Merge(s)
	}

	return merged
}
