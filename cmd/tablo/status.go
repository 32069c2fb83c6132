package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/proofsheet/tablo/internal/domain"
	"github.com/proofsheet/tablo/internal/studio"
)

// printStatus loads the gallery once and prints the per-step progress
func printStatus(client *studio.Client, galleryID int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	data, err := client.LoadStepData(ctx, galleryID, "")
	if err != nil {
		return fmt.Errorf("failed to load gallery %d: %s", galleryID, domain.UserMessage(err))
	}

	fmt.Printf("Gallery %d · current step: %s\n", galleryID, data.CurrentStep.Info().Label)
	fmt.Println(renderStatusTable(data))
	return nil
}

// renderStatusTable summarizes each step's selection
func renderStatusTable(data *domain.StepData) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Step", "Selected", "Limit", "State"})

	current := data.CurrentStep.Index()
	progress := data.Progress

	retouchLimit := "-"
	if max := data.WorkSession.MaxRetouchPhotos; max != nil {
		retouchLimit = strconv.Itoa(*max)
	}
	tablo := 0
	if progress.TabloID() != 0 {
		tablo = 1
	}

	rows := []struct {
		step  domain.Step
		count int
		limit string
	}{
		{domain.StepClaiming, len(progress.ClaimedIDs()), "-"},
		{domain.StepRetouch, len(progress.RetouchIDs()), retouchLimit},
		{domain.StepTablo, tablo, "1"},
	}
	for _, r := range rows {
		tw.AppendRow(table.Row{r.step.Info().Label, r.count, r.limit, stepState(r.step.Index(), current)})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func stepState(step, current int) string {
	switch {
	case step < current:
		return "done"
	case step == current:
		return "current"
	}
	return "pending"
}
