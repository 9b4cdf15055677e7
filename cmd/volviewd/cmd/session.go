package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/volview-xnat/volviewd/internal/adapter/outbound/state"
	"github.com/volview-xnat/volviewd/internal/domain/imaging"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage imaging session records in state.json",
	Long: `Store, list and remove the imaging session records the server seeds
its session store from.

Examples:
  volviewd session put XNAT_E00001 --project P1 --label MR_1 --study-uid 1.2.840.1
  volviewd session put XNAT_E00002 --project P2 --shared P1
  volviewd session list
  volviewd session remove XNAT_E00001`,
}

var (
	sessionProject  string
	sessionLabel    string
	sessionStudyUID string
	sessionShared   []string
)

var sessionPutCmd = &cobra.Command{
	Use:   "put <session-id>",
	Short: "Insert or replace an imaging session record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, svc, err := newAdminServices()
		if err != nil {
			return err
		}
		err = svc.Put(cmd.Context(), &imaging.Session{
			ID:               args[0],
			ProjectID:        sessionProject,
			Label:            sessionLabel,
			StudyInstanceUID: sessionStudyUID,
			SharedProjects:   sessionShared,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored session %s\n", args[0])
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imaging session records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, svc, err := newAdminServices()
		if err != nil {
			return err
		}
		entries, err := svc.List(cmd.Context())
		if err != nil {
			return err
		}
		printSessions(cmd.OutOrStdout(), entries)
		return nil
	},
}

var sessionRemoveCmd = &cobra.Command{
	Use:   "remove <session-id>",
	Short: "Remove an imaging session record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, svc, err := newAdminServices()
		if err != nil {
			return err
		}
		if err := svc.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed session %s\n", args[0])
		return nil
	},
}

func init() {
	sessionPutCmd.Flags().StringVar(&sessionProject, "project", "", "primary project ID (required)")
	sessionPutCmd.Flags().StringVar(&sessionLabel, "label", "", "session label")
	sessionPutCmd.Flags().StringVar(&sessionStudyUID, "study-uid", "", "DICOM StudyInstanceUID")
	sessionPutCmd.Flags().StringSliceVar(&sessionShared, "shared", nil, "project the session is shared into (repeatable)")
	_ = sessionPutCmd.MarkFlagRequired("project")
	sessionCmd.AddCommand(sessionPutCmd, sessionListCmd, sessionRemoveCmd)
	rootCmd.AddCommand(sessionCmd)
}

func printSessions(w io.Writer, entries []state.ImagingSessionEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no imaging sessions")
		return
	}
	fmt.Fprintf(w, "%-20s  %-12s  %-20s  %-30s  %s\n", "ID", "PROJECT", "LABEL", "STUDY UID", "SHARED")
	for _, e := range entries {
		fmt.Fprintf(w, "%-20s  %-12s  %-20s  %-30s  %s\n", e.ID, e.ProjectID, e.Label, e.StudyInstanceUID, strings.Join(e.SharedProjects, ","))
	}
}
