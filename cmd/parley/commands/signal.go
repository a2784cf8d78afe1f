package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"parley/internal/domain"
)

// typing <conversation> <on|off>: emit a typing indicator.
func typingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "typing <conversation> <on|off>",
		Short: "Emit a typing indicator",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			if err := requireRelay(); err != nil {
				return err
			}
			switch args[1] {
			case "on":
				return wire.Signals.SendTyping(cmd.Context(), args[0], true)
			case "off":
				return wire.Signals.SendTyping(cmd.Context(), args[0], false)
			default:
				return fmt.Errorf("state must be on or off, got %q", args[1])
			}
		},
	}
}

// call: start, answer and hang up calls.
func callCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call",
		Short: "Start, answer and hang up calls",
	}
	cmd.AddCommand(callStartCmd(), callAnswerCmd(), callHangupCmd())
	return cmd
}

func callStartCmd() *cobra.Command {
	var video bool

	cmd := &cobra.Command{
		Use:   "start <conversation>",
		Short: "Invite a conversation to a call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			if err := requireRelay(); err != nil {
				return err
			}
			kind := domain.CallAudio
			if video {
				kind = domain.CallVideo
			}
			callID, err := wire.Signals.StartCall(cmd.Context(), args[0], kind)
			if err != nil {
				return err
			}
			fmt.Println(callID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&video, "video", false, "start a video call")
	return cmd
}

func callAnswerCmd() *cobra.Command {
	var decline bool

	cmd := &cobra.Command{
		Use:   "answer <conversation> <call>",
		Short: "Accept (or decline) a call invite",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			if err := requireRelay(); err != nil {
				return err
			}
			return wire.Signals.RespondToCall(cmd.Context(), args[1], args[0], !decline)
		},
	}
	cmd.Flags().BoolVar(&decline, "decline", false, "decline instead of accepting")
	return cmd
}

func callHangupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hangup <conversation> <call>",
		Short: "Hang up a call",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			if err := requireRelay(); err != nil {
				return err
			}
			return wire.Signals.Hangup(cmd.Context(), args[1], args[0])
		},
	}
}
