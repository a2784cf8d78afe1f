package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"parley/internal/domain"
)

// listen: consume pushed relay events until interrupted.
func listenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Stream pushed events (messages, key grants, signals)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			if err := requireRelay(); err != nil {
				return err
			}
			if err := loadIdentity(); err != nil {
				return err
			}
			id, err := wire.IDs.Identity()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sigs, cancel := wire.Signals.Bus().Subscribe(32)
			defer cancel()
			go func() {
				for sig := range sigs {
					printSignal(sig)
				}
			}()

			fmt.Println("Listening. Ctrl-C to stop.")
			err = wire.Stream(ctx, id.DeviceID).Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}

func printSignal(sig domain.Signal) {
	switch sig.Kind {
	case domain.SignalTyping:
		if sig.Typing != nil && sig.Typing.IsTyping {
			fmt.Printf("[%s] %s is typing\n", sig.ConversationID, sig.From)
		}
	case domain.SignalCallInvite:
		if sig.Call != nil {
			fmt.Printf("[%s] %s is calling (%s, call %s)\n", sig.ConversationID, sig.From, sig.Call.Kind, sig.Call.CallID)
		}
	case domain.SignalCallAnswer:
		if sig.Call != nil && sig.Call.Accepted != nil {
			verdict := "declined"
			if *sig.Call.Accepted {
				verdict = "accepted"
			}
			fmt.Printf("[%s] %s %s call %s\n", sig.ConversationID, sig.From, verdict, sig.Call.CallID)
		}
	case domain.SignalCallHangup:
		if sig.Call != nil {
			fmt.Printf("[%s] %s hung up call %s\n", sig.ConversationID, sig.From, sig.Call.CallID)
		}
	}
}
