package usecase

import (
	"context"

	"github.com/user/livecast-service/internal/entity"
	"github.com/user/livecast-service/internal/repository"
	"github.com/user/livecast-service/internal/snapshot"
)

// PlaylistService defines what the serving layer may do. Reads never start
// a crawl; only Refresh does.
type PlaylistService interface {
	Current() (*entity.PlaylistSnapshot, bool)
	Health() entity.Health
	RecentFailures(ctx context.Context, limit int) ([]*entity.ChannelFailure, error)
	Refresh()
}

type refresher interface {
	Trigger()
}

type playlistUseCase struct {
	store    *snapshot.Store
	failures repository.ChannelFailureRepository
	runner   refresher
}

// NewPlaylistService creates the serving-side use case. failures may be nil.
func NewPlaylistService(store *snapshot.Store, failures repository.ChannelFailureRepository, runner refresher) PlaylistService {
	return &playlistUseCase{
		store:    store,
		failures: failures,
		runner:   runner,
	}
}

func (uc *playlistUseCase) Current() (*entity.PlaylistSnapshot, bool) {
	return uc.store.Current()
}

func (uc *playlistUseCase) Health() entity.Health {
	return uc.store.Health()
}

func (uc *playlistUseCase) RecentFailures(ctx context.Context, limit int) ([]*entity.ChannelFailure, error) {
	if uc.failures == nil {
		return []*entity.ChannelFailure{}, nil
	}
	return uc.failures.FindRecent(ctx, limit)
}

func (uc *playlistUseCase) Refresh() {
	uc.runner.Trigger()
}
