package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/olievortex/oliejournal/internal/common"
	"github.com/olievortex/oliejournal/internal/dbx"
	"github.com/olievortex/oliejournal/internal/filex"
	"github.com/olievortex/oliejournal/internal/server/models"
)

// GetEntry returns entry id if it belongs to userID. Entries of other users
// are reported as common.ErrNotFound.
func (p *Pipeline) GetEntry(ctx context.Context, id int64, userID string) (*models.EntryListItem, error) {
	e, err := p.deps.Repos.Entries(p.deps.DB).GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return models.NewEntryListItem(e), nil
}

// GetEntryList returns the user's entries, newest first.
func (p *Pipeline) GetEntryList(ctx context.Context, userID string) ([]*models.EntryListItem, error) {
	list, err := p.deps.Repos.Entries(p.deps.DB).ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]*models.EntryListItem, 0, len(list))
	for _, e := range list {
		items = append(items, models.NewEntryListItem(e))
	}
	return items, nil
}

// GetEntryStatus reports how far the pipeline has got with entry id.
func (p *Pipeline) GetEntryStatus(ctx context.Context, id int64, userID string) (models.EntryStatus, error) {
	e, err := p.deps.Repos.Entries(p.deps.DB).GetForUser(ctx, id, userID)
	if errors.Is(err, common.ErrNotFound) {
		return models.StatusNotFound, nil
	}
	if err != nil {
		return models.StatusNotFound, err
	}
	return e.Status(), nil
}

// DeleteEntry removes entry id together with the user's chat sessions, the
// uploaded audio and any local copies. It returns false when the user has
// no such entry. Resources that are already gone are not errors.
func (p *Pipeline) DeleteEntry(ctx context.Context, id int64, userID string) (bool, error) {
	d := p.deps

	entry, err := d.Repos.Entries(d.DB).GetForUser(ctx, id, userID)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	list, err := d.Repos.Conversations(d.DB).ListActive(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, c := range list {
		if err := d.Chat.DeleteSession(ctx, c.ID); err != nil {
			return false, fmt.Errorf("delete conversation: %w", err)
		}
	}

	if err := d.Blobs.Delete(ctx, entry.AudioPath); err != nil {
		return false, fmt.Errorf("delete audio: %w", err)
	}
	if err := filex.RemoveIfExists(d.scratchPath(entry.AudioPath)); err != nil {
		return false, err
	}
	if entry.VoiceoverPath != nil {
		if err := filex.RemoveIfExists(filepath.Join(d.Settings.GoldPath, *entry.VoiceoverPath)); err != nil {
			return false, err
		}
	}

	err = d.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		convs := d.Repos.Conversations(tx)
		for _, c := range list {
			if err := convs.Delete(ctx, c.ID); err != nil {
				return err
			}
		}
		if err := d.Repos.Entries(tx).Delete(ctx, id); err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	d.Logger.Info(ctx, "entry deleted", "entry_id", id, "user_id", userID, "conversations", len(list))
	return true, nil
}
