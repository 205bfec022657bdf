package billing

import (
	"time"

	billingService "github.com/felixgeelhaar/nativebridge/internal/billing/application"
	"github.com/felixgeelhaar/nativebridge/internal/billing/domain"
	"github.com/spf13/cobra"
)

var (
	eventsLimit int
	watchFor    time.Duration
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recently dispatched purchase events",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := billingApp()
		if err != nil {
			return err
		}
		entries, err := app.Billing.RecentEvents(cmd.Context(), eventsLimit)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), entries)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print purchase events as they are dispatched",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := billingApp()
		if err != nil {
			return err
		}
		if err := connected(cmd, app); err != nil {
			return err
		}

		events := make(chan domain.PurchaseEvent, 16)
		sub := billingService.NewSubscriber("cli-watch", func(e domain.PurchaseEvent) {
			select {
			case events <- e:
			default:
			}
		})
		if err := app.Billing.Subscribe(cmd.Context(), sub); err != nil {
			return err
		}
		defer func() { _ = app.Billing.Unsubscribe(cmd.Context(), sub) }()

		var deadline <-chan time.Time
		if watchFor > 0 {
			timer := time.NewTimer(watchFor)
			defer timer.Stop()
			deadline = timer.C
		}

		for {
			select {
			case e := <-events:
				if err := printEvent(cmd, e); err != nil {
					return err
				}
			case <-deadline:
				return nil
			case <-cmd.Context().Done():
				return nil
			}
		}
	},
}

func init() {
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 0, "maximum number of events (0 for all retained)")
	watchCmd.Flags().DurationVar(&watchFor, "for", 0, "stop after this long (0 waits for interrupt)")
}
