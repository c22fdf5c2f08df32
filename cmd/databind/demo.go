package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AnatoleLucet/databind"
	"github.com/AnatoleLucet/databind/internal/config"
)

var scenarios = map[string]func(w io.Writer) error{
	"sideeffect":   runSideEffect,
	"setbinding":   runSetBinding,
	"valuebinding": runValueBinding,
}

func newDemoCommand(cfg *config.Config, stdout io.Writer) *cobra.Command {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	slices.Sort(names)

	return &cobra.Command{
		Use:       "demo [scenario...]",
		Short:     "Run demonstration scenarios",
		Long:      fmt.Sprintf("Run the given scenarios, or all of them: %v.", names),
		ValidArgs: names,
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			z, err := cfg.NewLogger()
			if err != nil {
				return err
			}
			defer func() { _ = z.Sync() }()
			databind.SetLogger(databind.NewZapLogger(z))

			reg := prometheus.NewRegistry()
			if err := databind.RegisterMetrics(reg); err != nil {
				return err
			}

			if len(args) == 0 {
				args = names
			}
			for _, name := range args {
				fmt.Fprintf(stdout, "== %s\n", name)
				if err := scenarios[name](stdout); err != nil {
					return errors.Wrapf(err, "scenario %s", name)
				}
			}

			if cfg.Metrics {
				return printMetrics(stdout, reg)
			}
			return nil
		},
	}
}

func printMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, "gathering metrics")
	}

	fmt.Fprintln(w, "== metrics")
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return errors.Wrap(err, "encoding metrics")
		}
	}

	return nil
}

// transcript collects lines written from any realm.
type transcript struct {
	mu sync.Mutex
	w  io.Writer
}

func (t *transcript) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.w, "  "+format+"\n", args...)
}

// runSideEffect shows dependency tracking, coalescing and pausing on a
// realm pumped by hand.
func runSideEffect(w io.Writer) error {
	t := &transcript{w: w}
	realm := databind.NewQueueRealm(databind.WithRealmName("main"))

	showDetails := databind.NewWritableValue(realm, false)
	name := databind.NewWritableValue(realm, "ada")
	age := databind.NewWritableValue(realm, 36)

	effect := databind.NewSideEffect(realm, func() {
		if showDetails.Value() {
			t.printf("render %s (%d)", name.Value(), age.Value())
		} else {
			t.printf("render %s", name.Value())
		}
	})
	defer effect.Dispose()

	t.printf("dependencies: %d", len(effect.Dependencies()))

	_ = age.SetValue(37)
	t.printf("age changed, %d rerun", realm.Flush())

	_ = name.SetValue("grace")
	_ = showDetails.SetValue(true)
	t.printf("two changes, %d rerun", realm.Flush())
	t.printf("dependencies: %d", len(effect.Dependencies()))

	effect.Pause()
	_ = age.SetValue(38)
	t.printf("paused, %d rerun", realm.Flush())
	effect.Resume()
	realm.Flush()

	return nil
}

// runSetBinding binds a set owned by a ui realm to a set owned by a model
// realm, each running its own loop.
func runSetBinding(w io.Writer) error {
	t := &transcript{w: w}

	ui := databind.NewLoopRealm(databind.WithRealmName("ui"))
	model := databind.NewLoopRealm(databind.WithRealmName("model"))

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ui.Run(gctx) })
	g.Go(func() error { return model.Run(gctx) })

	var (
		selected *databind.WritableSet[int]
		saved    *databind.WritableSet[int]
		dbc      *databind.DataBindingContext
	)

	model.SyncExec(func() {
		saved = databind.NewWritableSet[int](model)
		saved.AddSetChangeListener(databind.OnSetChange(func(e databind.SetChangeEvent[int]) {
			t.printf("model: -%v +%v", e.Diff.Removals, e.Diff.Additions)
		}))
	})

	ui.SyncExec(func() {
		selected = databind.NewWritableSet(ui, 1, 2, 3)
		dbc = databind.NewDataBindingContext(ui)
		databind.BindSet(dbc, selected, saved,
			databind.NewUpdateSetStrategy[int, int](databind.PolicyUpdate),
			databind.NeverUpdateSet[int, int](),
		)
	})

	ui.SyncExec(func() {
		_ = selected.ApplyDiff(databind.SetDiff[int]{Removals: []int{3}, Additions: []int{4}})
	})

	var elements []int
	model.SyncExec(func() { elements = saved.Elements() })
	t.printf("model is %v", elements)

	ui.SyncExec(dbc.Dispose)

	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runValueBinding binds a text field to an integer and shows how
// validation statuses report bad input.
func runValueBinding(w io.Writer) error {
	t := &transcript{w: w}
	realm := databind.NewQueueRealm(databind.WithRealmName("main"))

	text := databind.NewWritableValue(realm, "")
	count := databind.NewWritableValue(realm, 7)

	dbc := databind.NewDataBindingContext(realm)
	defer dbc.Dispose()

	binding := databind.BindValue[string, int](dbc, text, count, nil, nil)
	aggregate := databind.AggregateValidationStatus(dbc, databind.AggregateMaxSeverity)
	aggregate.AddValueChangeListener(databind.OnValueChange(func(e databind.ValueChangeEvent[databind.Status]) {
		t.printf("status: %s", e.Diff.New)
	}))

	t.printf("text is %q", text.Value())

	for _, input := range []string{"12", "twelve", "13"} {
		_ = text.SetValue(input)
		realm.Flush()
		t.printf("typed %q, count is %d, binding %s", input, count.Value(), binding.ValidationStatus().Value())
	}

	return nil
}
