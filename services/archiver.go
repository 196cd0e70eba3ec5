package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Dosada05/debate-tournament/models"
	"github.com/Dosada05/debate-tournament/storage"
	"github.com/gosimple/slug"
)

// ResultArchiver uploads the final standings of a tournament as JSON.
type ResultArchiver struct {
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewResultArchiver(uploader storage.FileUploader, logger *slog.Logger) *ResultArchiver {
	return &ResultArchiver{uploader: uploader, logger: logger}
}

type archivedResults struct {
	Tournament   *models.Tournament `json:"tournament"`
	ChampionID   *int               `json:"champion_participant_id,omitempty"`
	RollupAmount float64            `json:"rollup_amount"`
	Standings    []StandingEntry    `json:"standings"`
}

func ArchiveKey(tournamentID int, name string) string {
	s := slug.Make(name)
	if s == "" {
		return fmt.Sprintf("tournaments/%d/results.json", tournamentID)
	}
	return fmt.Sprintf("tournaments/%d-%s/results.json", tournamentID, s)
}

func (a *ResultArchiver) Archive(ctx context.Context, result *CompletionResult) (string, error) {
	t := result.Tournament
	doc := archivedResults{
		Tournament:   t,
		RollupAmount: result.RollupAmount,
		Standings:    result.Standings,
	}
	if result.Champion != nil {
		id := result.Champion.ID
		doc.ChampionID = &id
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode results of tournament %d: %w", t.ID, err)
	}

	key := ArchiveKey(t.ID, t.Name)
	uploaded, err := a.uploader.Upload(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	a.logger.DebugContext(ctx, "Results uploaded", slog.String("key", key), slog.String("etag", uploaded.ETag))
	if uploaded.Location != "" {
		return uploaded.Location, nil
	}
	return key, nil
}
