package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkeye/Classroom/internal/app/orch"
)

var createReq orch.CreateSessionRequest

var createCmd = &cobra.Command{
	Use:   "create-room CODE",
	Short: "Register a persistent room code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPI()
		if err != nil {
			return err
		}
		createReq.RoomCode = args[0]
		createReq.OrgID = org
		s, err := api.CreateRoom(cmd.Context(), createReq)
		if err != nil {
			return fmt.Errorf("create room: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", s.RoomCode, s.ID, s.Kind, s.Language)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createReq.RoomType, "type", "classroom", "meeting, classroom or speech")
	createCmd.Flags().StringVar(&createReq.Language, "language", "", "teacher speaking language")
	createCmd.Flags().StringVar(&createReq.TeacherName, "teacher", "", "teacher display name")
	createCmd.Flags().StringVar(&createReq.Description, "description", "", "free text")
	createCmd.Flags().StringVar(&createReq.PIN, "pin", "", "optional join PIN")
}
