package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/guloona/storefront-bff-go/internal/domain"
	"github.com/guloona/storefront-bff-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLocal(t *testing.T, local *memFallback, p *domain.UserProfile) {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, local.Set(context.Background(), domain.FallbackKey(p.UserID), raw))
}

func readLocal(t *testing.T, local *memFallback, userID string) *domain.UserProfile {
	t.Helper()
	raw, err := local.Get(context.Background(), domain.FallbackKey(userID))
	require.NoError(t, err)
	if raw == nil {
		return nil
	}
	var p domain.UserProfile
	require.NoError(t, json.Unmarshal(raw, &p))
	return &p
}

func TestProfileEngine_FetchRemoteWarmsLocal(t *testing.T) {
	remote := newFakeProfileStore()
	remote.profiles["u1"] = &domain.UserProfile{UserID: "u1", FirstName: "Amal", LastName: "Raza"}
	local := newMemFallback()
	engine, metrics := newTestProfile(signedIn("u1", domain.UserMetadata{}), remote, local)

	p := engine.FetchProfile(context.Background(), "u1")
	require.NotNil(t, p)
	assert.Equal(t, "Amal Raza", engine.GetFullName())
	assert.False(t, engine.Loading())
	assert.Equal(t, "Amal", readLocal(t, local, "u1").FirstName)
	assert.EqualValues(t, 1, metrics.GetSyncSnapshot().ProfileRemote)
}

func TestProfileEngine_TieredFallback(t *testing.T) {
	remote := newFakeProfileStore()
	remote.getErr = errTransport
	local := newMemFallback()
	seedLocal(t, local, &domain.UserProfile{UserID: "u1", FirstName: "Amal", Bust: "34"})
	engine, metrics := newTestProfile(signedIn("u1", domain.UserMetadata{}), remote, local)

	p := engine.FetchProfile(context.Background(), "u1")
	require.NotNil(t, p)
	assert.Equal(t, "34", p.Bust)
	assert.EqualValues(t, 1, metrics.GetSyncSnapshot().ProfileLocal)

	// The local copy was pushed up; once the remote answers it serves it.
	remote.mu.Lock()
	remote.getErr = nil
	remote.mu.Unlock()

	p = engine.FetchProfile(context.Background(), "u1")
	require.NotNil(t, p)
	assert.Equal(t, "34", p.Bust)
	assert.Equal(t, "Amal", p.FirstName)
	assert.EqualValues(t, 1, metrics.GetSyncSnapshot().ProfileRemote)
}

func TestProfileEngine_LocalKeptWhenSyncUpFails(t *testing.T) {
	remote := newFakeProfileStore()
	remote.getErr = errTransport
	remote.createErr = errTransport
	local := newMemFallback()
	seedLocal(t, local, &domain.UserProfile{UserID: "u1", Phone: "555-0000"})
	engine, _ := newTestProfile(signedIn("u1", domain.UserMetadata{}), remote, local)

	p := engine.FetchProfile(context.Background(), "u1")
	require.NotNil(t, p)
	assert.Equal(t, "555-0000", p.Phone)
	assert.Equal(t, "555-0000", engine.Profile().Phone)
}

func TestProfileEngine_SynthesizesFromMetadata(t *testing.T) {
	remote := newFakeProfileStore()
	local := newMemFallback()
	engine, metrics := newTestProfile(signedIn("u1", domain.UserMetadata{FirstName: "Amal", LastName: "Raza"}), remote, local)

	p := engine.FetchProfile(context.Background(), "u1")
	require.NotNil(t, p)
	assert.Equal(t, "Amal Raza", p.FullName())
	assert.Empty(t, p.Phone)
	assert.False(t, p.CreatedAt.IsZero())

	require.NotNil(t, remote.stored("u1"), "the synthesized profile is created remotely")
	assert.EqualValues(t, 1, metrics.GetSyncSnapshot().ProfileCreated)
}

func TestProfileEngine_SynthesizedKeptLocallyWhenCreateFails(t *testing.T) {
	remote := newFakeProfileStore()
	remote.createErr = errTransport
	local := newMemFallback()
	engine, metrics := newTestProfile(signedIn("u1", domain.UserMetadata{}), remote, local)

	p := engine.FetchProfile(context.Background(), "u1")
	require.NotNil(t, p)
	assert.Equal(t, domain.FullNamePlaceholder, engine.GetFullName())
	require.NotNil(t, readLocal(t, local, "u1"))
	assert.EqualValues(t, 1, metrics.GetSyncSnapshot().LocalFallbacks)
}

func TestProfileEngine_MalformedLocalFallsThrough(t *testing.T) {
	remote := newFakeProfileStore()
	remote.getErr = errTransport
	local := newMemFallback()
	require.NoError(t, local.Set(context.Background(), domain.FallbackKey("u1"), []byte("{broken")))
	engine, metrics := newTestProfile(signedIn("u1", domain.UserMetadata{FirstName: "Amal"}), remote, local)

	p := engine.FetchProfile(context.Background(), "u1")
	require.NotNil(t, p)
	assert.Equal(t, "Amal", p.FirstName)
	assert.EqualValues(t, 1, metrics.GetSyncSnapshot().ProfileCreated)
}

func TestProfileEngine_UpdateMergesRemotely(t *testing.T) {
	remote := newFakeProfileStore()
	remote.profiles["u1"] = &domain.UserProfile{UserID: "u1", FirstName: "Amal", Bust: "34"}
	local := newMemFallback()
	engine, _ := newTestProfile(signedIn("u1", domain.UserMetadata{}), remote, local)

	p, err := engine.UpdateProfile(context.Background(), domain.ProfilePatch{Phone: domain.String("555-1111")})
	require.NoError(t, err)
	assert.Equal(t, "555-1111", p.Phone)
	assert.Equal(t, "34", p.Bust)
	assert.Equal(t, "555-1111", readLocal(t, local, "u1").Phone)
}

func TestProfileEngine_UpdateFallsBackLocally(t *testing.T) {
	remote := newFakeProfileStore()
	remote.profiles["u1"] = &domain.UserProfile{UserID: "u1", FirstName: "Amal", Bust: "34"}
	local := newMemFallback()
	engine, metrics := newTestProfile(signedIn("u1", domain.UserMetadata{}), remote, local)
	engine.FetchProfile(context.Background(), "u1")

	remote.mu.Lock()
	remote.updateErr = errTransport
	remote.mu.Unlock()

	p, err := engine.UpdateProfile(context.Background(), domain.ProfilePatch{Waist: domain.String("28")})
	require.NoError(t, err)
	assert.Equal(t, "28", p.Waist)
	assert.Equal(t, "34", p.Bust, "the known profile is the merge base")
	assert.Equal(t, "28", engine.Profile().Waist)

	stored := readLocal(t, local, "u1")
	assert.Equal(t, "28", stored.Waist)
	assert.Equal(t, "Amal", stored.FirstName)
	assert.EqualValues(t, 1, metrics.GetSyncSnapshot().LocalFallbacks)
}

func TestProfileEngine_UpdateFallbackUsesLocalWhenNothingLoaded(t *testing.T) {
	remote := newFakeProfileStore()
	remote.updateErr = errTransport
	local := newMemFallback()
	seedLocal(t, local, &domain.UserProfile{UserID: "u1", Location: "Lahore"})
	engine, _ := newTestProfile(signedIn("u1", domain.UserMetadata{}), remote, local)

	p, err := engine.UpdateProfile(context.Background(), domain.ProfilePatch{Height: domain.String("165cm")})
	require.NoError(t, err)
	assert.Equal(t, "Lahore", p.Location)
	assert.Equal(t, "165cm", p.Height)
}

func TestProfileEngine_WritesNeedSignIn(t *testing.T) {
	remote := newFakeProfileStore()
	engine, metrics := newTestProfile(&fakeSession{}, remote, newMemFallback())

	_, err := engine.UpdateProfile(context.Background(), domain.ProfilePatch{Phone: domain.String("1")})
	var notAuth *domain.ErrNotAuthenticated
	require.ErrorAs(t, err, &notAuth)

	_, err = engine.SaveCustomOrderDataToProfile(context.Background(), domain.CustomOrderForm{Phone: "1"})
	require.ErrorAs(t, err, &notAuth)
	assert.Equal(t, service.OpSaveCustomOrder, notAuth.Operation)

	assert.Zero(t, remote.updates)
	assert.EqualValues(t, 2, metrics.GetSyncSnapshot().GatedMutations)
}

func TestProfileEngine_BackfillNeverOverwrites(t *testing.T) {
	remote := newFakeProfileStore()
	remote.profiles["u1"] = &domain.UserProfile{UserID: "u1", Bust: "34"}
	engine, _ := newTestProfile(signedIn("u1", domain.UserMetadata{}), remote, newMemFallback())
	engine.FetchProfile(context.Background(), "u1")

	p, err := engine.SaveCustomOrderDataToProfile(context.Background(), domain.CustomOrderForm{Bust: "36", Phone: "555-1111"})
	require.NoError(t, err)
	assert.Equal(t, "34", p.Bust)
	assert.Equal(t, "555-1111", p.Phone)
	assert.Equal(t, "34", remote.stored("u1").Bust)
}

func TestProfileEngine_BackfillLoadsProfileFirst(t *testing.T) {
	remote := newFakeProfileStore()
	remote.profiles["u1"] = &domain.UserProfile{UserID: "u1", Bust: "34"}
	engine, _ := newTestProfile(signedIn("u1", domain.UserMetadata{}), remote, newMemFallback())

	p, err := engine.SaveCustomOrderDataToProfile(context.Background(), domain.CustomOrderForm{Bust: "36"})
	require.NoError(t, err)
	assert.Equal(t, "34", p.Bust)
	assert.Zero(t, remote.updates, "nothing to backfill is a no-op")
}

func TestProfileEngine_FullName(t *testing.T) {
	remote := newFakeProfileStore()
	engine, _ := newTestProfile(signedIn("u1", domain.UserMetadata{}), remote, newMemFallback())
	assert.Equal(t, "User", engine.GetFullName())

	remote.profiles["u1"] = &domain.UserProfile{UserID: "u1", FirstName: "Amal", LastName: "Raza"}
	engine.FetchProfile(context.Background(), "u1")
	assert.Equal(t, "Amal Raza", engine.GetFullName())

	remote.profiles["u1"] = &domain.UserProfile{UserID: "u1"}
	engine.FetchProfile(context.Background(), "u1")
	assert.Equal(t, "User", engine.GetFullName())
}

func TestProfileEngine_RefreshSignedOutResets(t *testing.T) {
	remote := newFakeProfileStore()
	remote.profiles["u1"] = &domain.UserProfile{UserID: "u1", FirstName: "Amal"}
	session := signedIn("u1", domain.UserMetadata{})
	engine, _ := newTestProfile(session, remote, newMemFallback())

	require.NotNil(t, engine.Refresh(context.Background()))
	require.NotNil(t, engine.Profile())

	session.set(nil)
	assert.Nil(t, engine.Refresh(context.Background()))
	assert.Nil(t, engine.Profile())
}

func TestProfileEngine_FetchDiscardedWhenResetDuringRead(t *testing.T) {
	remote := newFakeProfileStore()
	remote.profiles["u1"] = &domain.UserProfile{UserID: "u1", FirstName: "Amal"}
	engine, _ := newTestProfile(signedIn("u1", domain.UserMetadata{}), remote, newMemFallback())
	remote.afterGet = engine.Reset

	require.NotNil(t, engine.FetchProfile(context.Background(), "u1"))
	assert.Nil(t, engine.Profile())

	remote.afterGet = nil
	engine.FetchProfile(context.Background(), "u1")
	assert.Equal(t, "Amal", engine.Profile().FirstName)
}
