package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"schedadmin/internal/endpoints"
	logpkg "schedadmin/internal/log"
	"schedadmin/internal/scheduler"
	"schedadmin/internal/search"
	"schedadmin/internal/templates"
)

var searchCmd = &cobra.Command{
	Use:   "search [all|live|history]",
	Short: "Search the schedules of a scheduler",
	Long: `Search schedules the way the console pages do.

Criteria not given on the command line are taken from the previous search of
the same kind, remembered in the state file. The scheduler defaults to the
first one listed. Dates are YYYY-MM-DD in local time; --to covers the whole
day unless --to-bound says otherwise.`,
	Example: `  # Live schedules of sched-A triggering on the first week of January
  schedadmin search live --scheduler sched-A --from 2024-01-01 --to 2024-01-07

  # Most recently created history entries
  schedadmin search history --sort timestamp --order desc --max 20`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

type searchOptions struct {
	scheduler string
	id        string
	from      string
	to        string
	sort      string
	order     string
	max       int
	fromBound string
	toBound   string
	noState   bool
}

var searchOpts searchOptions

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVarP(&searchOpts.scheduler, "scheduler", "s", "", "Scheduler name")
	searchCmd.Flags().StringVar(&searchOpts.id, "id", "", "Schedule id filter")
	searchCmd.Flags().StringVar(&searchOpts.from, "from", "", "Lower trigger date bound (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchOpts.to, "to", "", "Upper trigger date bound (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchOpts.sort, "sort", "", "Sort column (id, epoch, timestamp)")
	searchCmd.Flags().StringVar(&searchOpts.order, "order", "", "Sort order (asc, desc)")
	searchCmd.Flags().IntVar(&searchOpts.max, "max", 0, fmt.Sprintf("Maximum schedules returned (default %d)", scheduler.DefaultMax))
	searchCmd.Flags().StringVar(&searchOpts.fromBound, "from-bound", "none", "Normalization of --from (none, start-of-day, end-of-day)")
	searchCmd.Flags().StringVar(&searchOpts.toBound, "to-bound", "end-of-day", "Normalization of --to (none, start-of-day, end-of-day)")
	searchCmd.Flags().BoolVar(&searchOpts.noState, "no-state", false, "Neither read nor remember criteria in the state file")
}

func runSearch(cmd *cobra.Command, args []string) error {
	kind := endpoints.KindAll
	if len(args) == 1 {
		k, err := endpoints.ParseKind(args[0])
		if err != nil {
			return err
		}
		kind = k
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout())
	defer cancel()

	client, err := newSchedulerClient(ctx)
	if err != nil {
		return err
	}
	var store search.Store
	if !searchOpts.noState {
		fs, err := openStateStore()
		if err != nil {
			return err
		}
		store = fs
	}
	return executeSearch(ctx, cmd.OutOrStdout(), client, store, kind, searchOpts, time.Local)
}

// executeSearch seeds an orchestrator from opts and store, waits for the
// search and renders the result to out.
func executeSearch(ctx context.Context, out io.Writer, client *scheduler.Client, store search.Store, kind endpoints.Kind, opts searchOptions, loc *time.Location) error {
	explicit, extra, err := opts.actions(loc)
	if err != nil {
		return err
	}
	reducer := search.DefaultReducer()
	if reducer.From, err = search.ParseNormalization(opts.fromBound); err != nil {
		return err
	}
	if reducer.To, err = search.ParseNormalization(opts.toBound); err != nil {
		return err
	}

	logger := logpkg.Global()
	seeded, err := search.Seed(search.SeedSource{
		Explicit: explicit,
		Store:    store,
		Scope:    search.ScopeOf(kind),
		Location: loc,
	})
	if err != nil {
		logger.Warn("failed to clear remembered criteria", "error", err)
	}

	list, err := client.ListSchedulers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list schedulers: %w", err)
	}
	if len(list) == 0 {
		return fmt.Errorf("no scheduler is available")
	}
	selected := list[0]
	if name := seeded.SchedulerName(); name != "" {
		s, ok := scheduler.FindScheduler(list, name)
		switch {
		case ok:
			selected = s
		case explicit.SchedulerName != "":
			return fmt.Errorf("unknown scheduler %q", name)
		default:
			logger.Warn("remembered scheduler is not listed, using first", "scheduler", name, "first", selected.Name)
		}
	}
	seeded.Scheduler = &selected

	orchOpts := []search.Option{
		search.WithReducer(reducer),
		search.WithLogger(logger),
		search.WithRequestTimeout(requestTimeout()),
	}
	if store != nil {
		orchOpts = append(orchOpts, search.WithStore(store))
	}
	orch := search.NewOrchestrator(kind, client, orchOpts...)
	defer orch.Close()

	orch.Dispatch(ctx, append([]search.Action{search.Init{Partial: seeded}}, extra...)...)
	orch.SchedulersLoaded(ctx, list)
	orch.Wait()

	st := orch.State()
	if st.Err != nil {
		return fmt.Errorf("search failed: %w", st.Err)
	}

	manager, err := templates.NewManager(loc)
	if err != nil {
		return err
	}
	data := templates.SchedulesData{Kind: kind, Summary: st.Model.Summary(), Label: st.Label()}
	if st.Result != nil {
		data.Schedules = st.Result.Schedules
	}
	rendered, err := manager.RenderSchedules(data)
	if err != nil {
		return err
	}
	fmt.Fprint(out, rendered)
	return nil
}

// actions splits the flags into seedable criteria and the remaining
// actions applied after the initial state.
func (o searchOptions) actions(loc *time.Location) (search.Criteria, []search.Action, error) {
	c := search.Criteria{SchedulerName: o.scheduler, ScheduleID: o.id}
	var err error
	if c.EpochFrom, err = search.ParseDate(o.from, loc); err != nil {
		return c, nil, err
	}
	if c.EpochTo, err = search.ParseDate(o.to, loc); err != nil {
		return c, nil, err
	}

	var extra []search.Action
	if o.sort != "" {
		st, err := scheduler.ParseSortType(o.sort)
		if err != nil {
			return c, nil, err
		}
		extra = append(extra, search.SortChanged{Sort: st})
	}
	if o.order != "" {
		so, err := scheduler.ParseSortOrder(o.order)
		if err != nil {
			return c, nil, err
		}
		extra = append(extra, search.SortOrderChanged{Order: so})
	}
	if o.max < 0 {
		return c, nil, fmt.Errorf("--max must not be negative")
	}
	if o.max > 0 {
		extra = append(extra, search.MaxChanged{Max: o.max})
	}
	return c, extra, nil
}
