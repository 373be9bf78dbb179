package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/SubSh2004/CampusZon-sub000/internal/model"
	"github.com/SubSh2004/CampusZon-sub000/pkg/auth"
	"github.com/SubSh2004/CampusZon-sub000/pkg/errcode"
)

func newAuthService(f *fixture, admins ...string) (*authService, *auth.Issuer) {
	issuer := auth.NewIssuer("test-secret", "campuszon", time.Hour, 0)
	svc := NewAuthService(f.users, issuer, admins).(*authService)
	svc.bcryptCost = bcrypt.MinCost
	return svc, issuer
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc, issuer := newAuthService(f, "Warden@IITB.ac.in")

	u, err := svc.Register(ctx, RegisterInput{Name: "Asha", Email: " Asha@IITB.ac.in ", Password: "hunter22", Phone: "9000000000", Hostel: "H12"})
	require.NoError(t, err)
	assert.Equal(t, "asha@iitb.ac.in", u.Email)
	assert.Equal(t, "iitb.ac.in", u.Campus)
	assert.Equal(t, model.Tokens(0), u.TokenBalance)
	assert.False(t, u.IsAdmin)
	assert.NotEqual(t, "hunter22", u.Password)

	_, err = svc.Register(ctx, RegisterInput{Name: "Asha", Email: "asha@iitb.ac.in", Password: "x"})
	assert.ErrorIs(t, err, errcode.ErrConflict)

	res, err := svc.Login(ctx, "asha@iitb.ac.in", "hunter22")
	require.NoError(t, err)
	claims, err := issuer.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.Subject)
	assert.Equal(t, "iitb.ac.in", claims.Campus)
	assert.False(t, claims.IsAdmin)

	_, err = svc.Login(ctx, "asha@iitb.ac.in", "wrong")
	assert.ErrorIs(t, err, errcode.ErrUnauthorized)
	_, err = svc.Login(ctx, "nobody@iitb.ac.in", "hunter22")
	assert.ErrorIs(t, err, errcode.ErrUnauthorized)
}

func TestAuth_AdminEmailsAndCampus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc, _ := newAuthService(f, "Warden@IITB.ac.in")

	u, err := svc.Register(ctx, RegisterInput{Name: "W", Email: "warden@iitb.ac.in", Password: "pw"})
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	_, err = svc.Register(ctx, RegisterInput{Name: "X", Email: "no-domain", Password: "pw"})
	assert.Equal(t, errcode.KindInvalidArgument, errcode.KindOf(err))
}

func TestAuth_Preferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc, _ := newAuthService(f)
	c := f.user(t, "p@iitb.ac.in", 0)

	u, err := svc.UpdatePreferences(ctx, c, true)
	require.NoError(t, err)
	assert.True(t, u.SkipUnlockConfirmation)

	me, err := svc.Me(ctx, c)
	require.NoError(t, err)
	assert.True(t, me.SkipUnlockConfirmation)

	_, err = svc.Me(ctx, Caller{ID: "ghost"})
	assert.ErrorIs(t, err, errcode.ErrNotFound)
}
