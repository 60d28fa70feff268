package tokens

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/revokedtokens"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *auth.Signer, *revokedtokens.MemoryRepository) {
	t.Helper()
	signer, err := auth.NewSigner([]byte("engine-secret"), accessTTL, refreshTTL)
	require.NoError(t, err)
	store := revokedtokens.NewMemoryRepository()
	return NewEngine(signer, store), signer, store
}

func requireKind(t *testing.T, err error, want common.AuthErrorKind) {
	t.Helper()
	require.Error(t, err)
	kind, ok := common.AuthErrorKindOf(err)
	require.True(t, ok, "expected *common.AuthError, got %T: %v", err, err)
	assert.Equal(t, want, kind, "error: %v", err)
}

type failingStore struct {
	revokeErr  error
	revokedErr error
	revoked    bool
	revokes    int
}

func (f *failingStore) Revoke(context.Context, *models.RevokedToken) error {
	f.revokes++
	return f.revokeErr
}

func (f *failingStore) IsRevoked(context.Context, string) (bool, error) {
	return f.revoked, f.revokedErr
}

func TestIssuePair_RoundTrip(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)

	for _, subject := range []string{"42", "user-1", "7f0c1b2e-5a1e-4c55-8f1b-1f2f3a4b5c6d"} {
		pair, err := e.IssuePair(ctx, subject, t0)
		require.NoError(t, err)
		assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

		got, err := e.VerifyAccess(ctx, pair.AccessToken, t0)
		require.NoError(t, err)
		assert.Equal(t, subject, got)

		got, err = e.VerifyRefresh(ctx, pair.RefreshToken, t0)
		require.NoError(t, err)
		assert.Equal(t, subject, got)
	}
}

func TestIssuePair_EmptySubjectIsInternal(t *testing.T) {
	e, _, _ := newTestEngine(t)

	_, err := e.IssuePair(context.Background(), "", t0)
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestVerify_ExpiredAtAndAfterExpiry(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)

	pair, err := e.IssuePair(ctx, "42", t0)
	require.NoError(t, err)

	for _, at := range []time.Time{t0.Add(accessTTL), t0.Add(accessTTL + time.Hour)} {
		_, err = e.VerifyAccess(ctx, pair.AccessToken, at)
		requireKind(t, err, common.AuthExpired)
		assert.ErrorIs(t, err, common.ErrTokenExpired)
	}

	_, err = e.VerifyRefresh(ctx, pair.RefreshToken, t0.Add(refreshTTL-time.Second))
	require.NoError(t, err)

	for _, at := range []time.Time{t0.Add(refreshTTL), t0.Add(2 * refreshTTL)} {
		_, err = e.VerifyRefresh(ctx, pair.RefreshToken, at)
		requireKind(t, err, common.AuthExpired)
	}
}

func TestVerify_CrossClassRejected(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)

	pair, err := e.IssuePair(ctx, "42", t0)
	require.NoError(t, err)

	_, err = e.VerifyRefresh(ctx, pair.AccessToken, t0)
	requireKind(t, err, common.AuthClassMismatch)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = e.VerifyAccess(ctx, pair.RefreshToken, t0)
	requireKind(t, err, common.AuthClassMismatch)

	_, err = e.Refresh(ctx, pair.AccessToken, t0)
	requireKind(t, err, common.AuthClassMismatch)

	err = e.Logout(ctx, pair.AccessToken, t0)
	requireKind(t, err, common.AuthClassMismatch)
}

func TestRefresh_MintsAccessForSameSubject(t *testing.T) {
	ctx := context.Background()
	e, signer, _ := newTestEngine(t)

	pair, err := e.IssuePair(ctx, "42", t0)
	require.NoError(t, err)

	t1 := t0.Add(time.Second)
	access, err := e.Refresh(ctx, pair.RefreshToken, t1)
	require.NoError(t, err)

	claims, err := signer.Decode(access, t1)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.SubjectID())
	assert.Equal(t, auth.ClassAccess, claims.Class)
	assert.True(t, claims.ExpiresAt.Time.Equal(t1.Add(accessTTL)))
	assert.True(t, claims.ExpiresAt.After(t1))

	_, err = e.Refresh(ctx, pair.RefreshToken, t1.Add(time.Minute))
	require.NoError(t, err, "refresh tokens are reusable until logout")
}

func TestTamperedAccessTokenIsMalformed(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)

	pair, err := e.IssuePair(ctx, "42", t0)
	require.NoError(t, err)

	tok := pair.AccessToken
	i := strings.LastIndex(tok, ".") + 1
	replacement := byte('A')
	if tok[i] == 'A' {
		replacement = 'B'
	}
	tampered := tok[:i] + string(replacement) + tok[i+1:]

	_, err = e.VerifyAccess(ctx, tampered, t0)
	requireKind(t, err, common.AuthMalformed)
}

// trailingBitsVariant sets an unused low bit of the last base64url character,
// which lenient decoders map to the same signature bytes.
func trailingBitsVariant(tok string) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	i := strings.IndexByte(alphabet, tok[len(tok)-1])
	return tok[:len(tok)-1] + string(alphabet[i^1])
}

func TestReencodedSignatureIsMalformed(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)

	pair, err := e.IssuePair(ctx, "42", t0)
	require.NoError(t, err)

	_, err = e.VerifyAccess(ctx, trailingBitsVariant(pair.AccessToken), t0)
	requireKind(t, err, common.AuthMalformed)

	_, err = e.VerifyRefresh(ctx, trailingBitsVariant(pair.RefreshToken), t0)
	requireKind(t, err, common.AuthMalformed)
}

func TestLogout_VariantOfRevokedTokenIsRejected(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)

	pair, err := e.IssuePair(ctx, "42", t0)
	require.NoError(t, err)
	require.NoError(t, e.Logout(ctx, pair.RefreshToken, t0))

	variant := trailingBitsVariant(pair.RefreshToken)

	access, err := e.Refresh(ctx, variant, t0)
	require.Error(t, err)
	assert.Empty(t, access)

	_, err = e.Refresh(ctx, pair.RefreshToken, t0)
	requireKind(t, err, common.AuthRevoked)
}

func TestLogoutThenRefresh_Backends(t *testing.T) {
	ctx := context.Background()
	signer, err := auth.NewSigner([]byte("engine-secret"), accessTTL, refreshTTL)
	require.NoError(t, err)

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		e := NewEngine(signer, revokedtokens.NewRedisRepository(client))

		pair, err := e.IssuePair(ctx, "42", t0)
		require.NoError(t, err)
		require.NoError(t, e.Logout(ctx, pair.RefreshToken, t0))

		_, err = e.Refresh(ctx, pair.RefreshToken, t0.Add(time.Second))
		requireKind(t, err, common.AuthRevoked)
		_, err = e.Refresh(ctx, trailingBitsVariant(pair.RefreshToken), t0.Add(time.Second))
		require.Error(t, err)
		assert.Len(t, mr.Keys(), 1)
	})

	t.Run("postgres", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		e := NewEngine(signer, revokedtokens.NewPostgresRepository(db))

		pair, err := e.IssuePair(ctx, "42", t0)
		require.NoError(t, err)
		claims, err := signer.Decode(pair.RefreshToken, t0)
		require.NoError(t, err)

		exists := `SELECT EXISTS \(SELECT 1 FROM revoked_tokens WHERE token_id = \$1\)`
		mock.ExpectQuery(exists).WithArgs(claims.ID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(`INSERT INTO revoked_tokens`).
			WithArgs(claims.ID, sqlmock.AnyArg(), t0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(exists).WithArgs(claims.ID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		require.NoError(t, e.Logout(ctx, pair.RefreshToken, t0))
		_, err = e.Refresh(ctx, pair.RefreshToken, t0.Add(time.Second))
		requireKind(t, err, common.AuthRevoked)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	ctx := context.Background()
	e, _, store := newTestEngine(t)

	pair, err := e.IssuePair(ctx, "42", t0)
	require.NoError(t, err)

	require.NoError(t, e.Logout(ctx, pair.RefreshToken, t0))

	for _, at := range []time.Time{t0, t0.Add(time.Hour), t0.Add(refreshTTL - time.Second)} {
		_, err = e.VerifyRefresh(ctx, pair.RefreshToken, at)
		requireKind(t, err, common.AuthRevoked)
		assert.ErrorIs(t, err, common.ErrTokenRevoked)
	}

	_, err = e.Refresh(ctx, pair.RefreshToken, t0)
	requireKind(t, err, common.AuthRevoked)

	_, err = e.VerifyRefresh(ctx, pair.RefreshToken, t0.Add(refreshTTL))
	requireKind(t, err, common.AuthExpired)

	got, err := e.VerifyAccess(ctx, pair.AccessToken, t0)
	require.NoError(t, err, "access tokens outlive logout until their own expiry")
	assert.Equal(t, "42", got)

	assert.Equal(t, 1, store.Len())
}

func TestLogout_Idempotent(t *testing.T) {
	ctx := context.Background()
	signer, err := auth.NewSigner([]byte("engine-secret"), accessTTL, refreshTTL)
	require.NoError(t, err)
	store := &countingStore{MemoryRepository: revokedtokens.NewMemoryRepository()}
	e := NewEngine(signer, store)

	pair, err := e.IssuePair(ctx, "42", t0)
	require.NoError(t, err)

	require.NoError(t, e.Logout(ctx, pair.RefreshToken, t0))
	require.NoError(t, e.Logout(ctx, pair.RefreshToken, t0.Add(time.Second)))

	assert.Equal(t, 1, store.revokes)

	claims, err := signer.Decode(pair.RefreshToken, t0)
	require.NoError(t, err)
	assert.Equal(t, claims.ID, store.last.TokenID)
	assert.True(t, store.last.ExpiresAt.Equal(t0.Add(refreshTTL)))
	assert.True(t, store.last.RevokedAt.Equal(t0))
}

type countingStore struct {
	*revokedtokens.MemoryRepository
	revokes int
	last    models.RevokedToken
}

func (c *countingStore) Revoke(ctx context.Context, entry *models.RevokedToken) error {
	c.revokes++
	c.last = *entry
	return c.MemoryRepository.Revoke(ctx, entry)
}

func TestLogout_RejectsInvalidTokens(t *testing.T) {
	ctx := context.Background()
	e, _, store := newTestEngine(t)

	pair, err := e.IssuePair(ctx, "42", t0)
	require.NoError(t, err)

	requireKind(t, e.Logout(ctx, "garbage", t0), common.AuthMalformed)
	requireKind(t, e.Logout(ctx, pair.RefreshToken, t0.Add(refreshTTL)), common.AuthExpired)
	assert.Zero(t, store.Len())
}

func TestLogoutThenRefreshFailsRevoked(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)

	pair, err := e.IssuePair(ctx, "42", t0)
	require.NoError(t, err)
	require.NoError(t, e.Logout(ctx, pair.RefreshToken, t0))

	_, err = e.Refresh(ctx, pair.RefreshToken, t0)
	requireKind(t, err, common.AuthRevoked)
}

func TestStoreFailuresPropagate(t *testing.T) {
	ctx := context.Background()
	signer, err := auth.NewSigner([]byte("engine-secret"), accessTTL, refreshTTL)
	require.NoError(t, err)

	boom := errors.New("connection refused")
	store := &failingStore{revokedErr: boom}
	e := NewEngine(signer, store)

	pair, err := e.IssuePair(ctx, "42", t0)
	require.NoError(t, err)

	_, err = e.VerifyRefresh(ctx, pair.RefreshToken, t0)
	require.ErrorIs(t, err, boom)
	_, isAuth := common.AuthErrorKindOf(err)
	assert.False(t, isAuth, "store failures are not auth rejections")

	_, err = e.Refresh(ctx, pair.RefreshToken, t0)
	assert.ErrorIs(t, err, boom)

	store.revokedErr = nil
	store.revokeErr = boom
	err = e.Logout(ctx, pair.RefreshToken, t0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, store.revokes)
}

func TestEngine_ConcurrentUse(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pair, err := e.IssuePair(ctx, "42", t0)
			if !assert.NoError(t, err) {
				return
			}
			_, err = e.VerifyAccess(ctx, pair.AccessToken, t0)
			assert.NoError(t, err)
			assert.NoError(t, e.Logout(ctx, pair.RefreshToken, t0))
			_, err = e.VerifyRefresh(ctx, pair.RefreshToken, t0)
			assert.ErrorIs(t, err, common.ErrTokenRevoked)
		}()
	}
	wg.Wait()
}
