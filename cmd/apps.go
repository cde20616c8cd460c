package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"

	"github.com/worklens/worklens/internal/config"
	"github.com/worklens/worklens/internal/store"
)

var (
	appsHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	appsNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212"))

	appsBundleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "Inspect tracked applications",
}

var appsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every application seen so far",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listApps(cmd.Context())
	},
}

func init() {
	appsCmd.AddCommand(appsListCmd)
	rootCmd.AddCommand(appsCmd)
}

func listApps(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st, err := store.NewStore(store.Config{
		Path:     cfg.DBPath(),
		LogLevel: logger.Silent,
	})
	if err != nil {
		return err
	}
	defer st.Close()

	apps, err := st.ListApps(ctx)
	if err != nil {
		return err
	}
	if len(apps) == 0 {
		fmt.Println("No applications recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		appsHeaderStyle.Render("ID"),
		appsHeaderStyle.Render("NAME"),
		appsHeaderStyle.Render("BUNDLE ID"),
		appsHeaderStyle.Render("DESCRIPTION"),
	)
	for _, app := range apps {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			app.ID,
			appsNameStyle.Render(app.Name),
			appsBundleStyle.Render(app.BundleID),
			truncate(app.Description, 80),
		)
	}
	return w.Flush()
}

// truncate shortens s to at most n characters. It counts runes so a
// multi-byte description is never cut mid-character.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
