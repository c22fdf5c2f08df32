package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "databind"

var SideEffectRuns = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "side_effect_runs_total",
		Help:      "Number of times a side effect procedure ran.",
	},
)

var SideEffectSchedules = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "side_effect_schedules_total",
		Help:      "Number of deferred side effect reruns posted to a realm.",
	},
)

var SideEffectPanics = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "side_effect_panics_total",
		Help:      "Number of side effect runs aborted by a panic.",
	},
)

var SideEffectDependencies = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "side_effect_dependencies",
		Help:      "Size of the dependency set discovered by a side effect run.",
		Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
	},
)

var BindingPropagations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "binding_propagations_total",
		Help:      "Number of binding propagation passes.",
	},
	[]string{"kind", "direction"},
)

var BindingElementErrors = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "binding_element_errors_total",
		Help:      "Number of non-OK statuses merged during binding propagation.",
	},
	[]string{"kind"},
)

var Bindings = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "bindings",
		Help:      "Number of live bindings.",
	},
)

var RealmTasks = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realm_tasks_total",
		Help:      "Number of tasks run by a realm.",
	},
	[]string{"realm"},
)

var RealmTaskPanics = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realm_task_panics_total",
		Help:      "Number of realm tasks that panicked.",
	},
	[]string{"realm"},
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		SideEffectRuns,
		SideEffectSchedules,
		SideEffectPanics,
		SideEffectDependencies,
		BindingPropagations,
		BindingElementErrors,
		Bindings,
		RealmTasks,
		RealmTaskPanics,
	}
}

// Register registers every databind collector with reg.
// Collectors already registered with reg are skipped.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return errors.Wrap(err, "registering databind metrics")
		}
	}

	return nil
}
