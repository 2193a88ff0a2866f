package store

import (
	"context"
	"errors"

	"github.com/roach88/rewind/internal/location"
	"github.com/roach88/rewind/internal/redux"
)

// ErrDisposed is returned by Init after Dispose.
var ErrDisposed = errors.New("store disposed")

// Init connects the store to a navigator. It subscribes to location
// changes and dispatches the navigator's current location once. A second
// Init is a no-op.
//
// Dispatches triggered later by navigator events use ctx's values but not
// its cancellation.
func (s *Store[S]) Init(ctx context.Context, nav location.Navigator) error {
	if nav == nil {
		return redux.NewInvalidArgument("navigator is nil")
	}
	if s.disposed.Load() {
		return ErrDisposed
	}

	s.locMu.Lock()
	if s.disposed.Load() {
		s.locMu.Unlock()
		return ErrDisposed
	}
	if s.navigator != nil {
		s.locMu.Unlock()
		return nil
	}
	s.navigator = nav
	s.navCtx = context.WithoutCancel(ctx)
	current := nav.Location()
	s.currentLocation = current
	s.unsubNavigator = nav.OnLocationChanged(s.onLocationChanged)
	s.locMu.Unlock()

	s.logger.Info("store initialized", "location", current)

	return s.Dispatch(ctx, redux.NewLocationAction{Location: current})
}

// Dispose unsubscribes from the navigator and the devtools bridge. It is
// idempotent and safe before Init.
func (s *Store[S]) Dispose() {
	if !s.disposed.CompareAndSwap(false, true) {
		return
	}

	s.locMu.Lock()
	unsubNavigator := s.unsubNavigator
	s.unsubNavigator = nil
	s.navigator = nil
	s.locMu.Unlock()

	if unsubNavigator != nil {
		unsubNavigator()
	}
	if s.unsubReset != nil {
		s.unsubReset()
	}
	if s.unsubTimeTravel != nil {
		s.unsubTimeTravel()
	}
}

// onLocationChanged turns navigator events into NewLocationAction
// dispatches. Echoes of the last known location are ignored, as are
// changes caused by applying a time travel.
func (s *Store[S]) onLocationChanged(loc string) {
	s.locMu.Lock()
	if loc == s.currentLocation {
		s.locMu.Unlock()
		return
	}
	s.currentLocation = loc
	ctx := s.navCtx
	s.locMu.Unlock()

	if s.timeTraveling.Load() > 0 {
		return
	}

	if err := s.Dispatch(ctx, redux.NewLocationAction{Location: loc}); err != nil {
		s.logger.Warn("location dispatch failed", "location", loc, "error", err)
	}
}

// syncLocation asks the navigator to follow the state's location.
func (s *Store[S]) syncLocation(state S) {
	if s.getLocation == nil {
		return
	}
	loc := s.getLocation(state)
	if loc == "" {
		return
	}

	s.locMu.Lock()
	nav := s.navigator
	if nav == nil || loc == s.currentLocation {
		s.locMu.Unlock()
		return
	}
	s.currentLocation = loc
	s.locMu.Unlock()

	nav.NavigateTo(loc)
}
