// internal/preference/filter.go
package preference

import (
	"context"
	"fmt"
	"time"

	"notify-engine/internal/common/errors"
	"notify-engine/internal/common/logger"
	"notify-engine/internal/models"
	"notify-engine/internal/routing"
	"notify-engine/internal/store"
)

// Filter narrows a tenant-level channel resolution down to what one user
// accepts right now. Unlike the route resolver, no fallback substitution
// happens here: a personally quiet channel is simply omitted.
type Filter struct {
	store  store.PreferenceStore
	logger logger.Logger
}

func NewFilter(st store.PreferenceStore, log logger.Logger) *Filter {
	return &Filter{
		store:  st,
		logger: log.WithFields(map[string]interface{}{"component": "preference"}),
	}
}

// Apply returns the subset of resolved channels the user has not opted out
// of and that fall outside the user's personal quiet hours. A missing
// preference record means everything is allowed. An empty userID means the
// recipient is anonymous; the resolved set passes through untouched.
func (f *Filter) Apply(ctx context.Context, tenantID, userID string, resolved []models.Channel, now time.Time) ([]models.Channel, error) {
	if userID == "" {
		return resolved, nil
	}

	pref, err := f.store.GetPreference(ctx, tenantID, userID)
	if err != nil {
		if errors.IsNotFound(err) {
			return resolved, nil
		}
		return nil, err
	}

	var allowed []models.Channel
	for _, ch := range resolved {
		cp, ok := pref.Channels[ch]
		if !ok {
			allowed = append(allowed, ch)
			continue
		}
		if !cp.Enabled {
			f.logger.Debug("channel opted out by user", map[string]interface{}{
				"tenantId": tenantID,
				"userId":   userID,
				"channel":  ch,
			})
			continue
		}
		if routing.IsSuppressed(cp.QuietHours, now) {
			f.logger.Debug("channel inside user quiet hours", map[string]interface{}{
				"tenantId": tenantID,
				"userId":   userID,
				"channel":  ch,
			})
			continue
		}
		allowed = append(allowed, ch)
	}
	return allowed, nil
}

// Upsert stores a user's preference record after validating its channels
// and quiet windows.
func (f *Filter) Upsert(ctx context.Context, pref *models.Preference) error {
	if pref.UserID == "" {
		return errors.NewBadRequestError("Preference user id is required", "")
	}
	for ch, cp := range pref.Channels {
		if !models.IsValidChannel(ch) {
			return errors.NewBadRequestError("Unknown channel in preference", fmt.Sprintf("channel: %s", ch))
		}
		if err := routing.ValidateQuietHours(cp.QuietHours); err != nil {
			return err
		}
	}
	pref.UpdatedAt = time.Now().UTC()
	if err := f.store.UpsertPreference(ctx, pref); err != nil {
		return err
	}
	f.logger.Info("preference upserted", map[string]interface{}{
		"tenantId": pref.TenantID,
		"userId":   pref.UserID,
	})
	return nil
}

// Get loads a user's preference record.
func (f *Filter) Get(ctx context.Context, tenantID, userID string) (*models.Preference, error) {
	return f.store.GetPreference(ctx, tenantID, userID)
}
