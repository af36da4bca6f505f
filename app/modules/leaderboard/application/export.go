package leaderboardservice

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Leaderboard"

var exportHeader = []any{
	"Rank", "Model", "Provider", "Games", "Wins", "Losses", "Ties", "Win Rate",
	"Apples", "Mu", "Sigma", "Exposed", "Display", "Elo", "Last Played",
}

// ExportXLSX writes the current leaderboard as a single-sheet workbook.
func (s *LeaderboardService) ExportXLSX(ctx context.Context, w io.Writer) error {
	entries, err := s.GetLeaderboard(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, e := range entries {
		lastPlayed := ""
		if e.LastPlayedAt != nil {
			lastPlayed = e.LastPlayedAt.UTC().Format("2006-01-02 15:04")
		}
		row := []any{
			e.Rank, e.Slug, e.Provider, e.GamesPlayed, e.Wins, e.Losses, e.Ties, e.WinRate(),
			e.Apples, e.Mu, e.Sigma, e.Exposed, e.Display, e.Elo, lastPlayed,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
