package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCreateCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new game and become its owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"display_name": name}
			var result Registration

			if err := client.post(cmd.Context(), "/api/v1/games", req, &result); err != nil {
				return err
			}

			if err := saveRegistration(result, name); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newJoinCmd() *cobra.Command {
	var (
		name  string
		token string
	)

	cmd := &cobra.Command{
		Use:   "join <code>",
		Short: "Join a game, or rejoin it under a name you already hold",
		Long: `Join a game by its code.

If the saved credentials are for the same game and name, their recovery
token is sent so the server hands back the same identity.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]

			if token == "" && cfg.Credentials.Code == code && cfg.Credentials.DisplayName == name {
				token = cfg.Credentials.RecoveryToken
			}

			req := map[string]string{"display_name": name}
			if token != "" {
				req["recovery_token"] = token
			}
			var result Registration

			if err := client.post(cmd.Context(), gamePath(code, "join"), req, &result); err != nil {
				return err
			}

			if err := saveRegistration(result, name); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&token, "token", "", "Recovery token for a name already in the game")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave",
		Short: "Leave the current game",
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := cfg.requireGame()
			if err != nil {
				return err
			}

			var result LeaveResult
			if err := client.post(cmd.Context(), gamePath(code, "leave"), nil, &result); err != nil {
				return err
			}

			if err := cfg.ClearCredentials(); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [code]",
		Short: "Show game details (defaults to the current game)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := cfg.gameCode(args)
			if err != nil {
				return err
			}

			var result Game
			if err := client.get(cmd.Context(), gamePath(code), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}

func newPlayersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "players [code]",
		Short: "List connected players (defaults to the current game)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := cfg.gameCode(args)
			if err != nil {
				return err
			}

			var result Players
			if err := client.get(cmd.Context(), gamePath(code, "players"), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}

func newExistsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <code>",
		Short: "Check whether a game exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Exists
			if err := client.get(cmd.Context(), gamePath(args[0], "exists"), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the current game (owner only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := cfg.requireGame()
			if err != nil {
				return err
			}

			if err := client.post(cmd.Context(), gamePath(code, "start"), nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.PrintMessage(fmt.Sprintf("Game %s started", code))
			return nil
		},
	}
}

func newOwnerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "owner <name>",
		Short: "Hand ownership of the current game to another participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := cfg.requireGame()
			if err != nil {
				return err
			}

			req := map[string]string{"display_name": args[0]}
			if err := client.post(cmd.Context(), gamePath(code, "owner"), req, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.PrintMessage(fmt.Sprintf("%s now owns game %s", args[0], code))
			return nil
		},
	}
}

func saveRegistration(r Registration, name string) error {
	return cfg.SaveCredentials(Credentials{
		Code:          r.Code,
		DisplayName:   name,
		PlayerID:      r.PlayerID,
		RecoveryToken: r.RecoveryToken,
	})
}
