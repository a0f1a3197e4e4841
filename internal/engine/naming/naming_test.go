package naming

import (
	"path/filepath"
	"testing"

	"strata/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMemberName(t *testing.T) {
	cases := map[string]string{
		"cl_player_data": "PlayerData",
		"sh_game_mode":   "GameMode",
		"sv_round":       "Round",
		"utility":        "Utility",
		"already_Pascal": "AlreadyPascal",
		"a__b":           "AB",
		"xx_keep":        "XxKeep",
	}
	for in, want := range cases {
		got, err := ToMemberName(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestToMemberName_Errors(t *testing.T) {
	_, err := ToMemberName("")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidArgument))

	_, err = ToMemberName("cl_")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidArgument))
}

func TestNamer_CustomPrefixes(t *testing.T) {
	n := NewNamer([]string{"srv_", " "})
	got, err := n.ToMemberName("srv_match_state")
	require.NoError(t, err)
	assert.Equal(t, "MatchState", got)

	got, err = n.ToMemberName("cl_hud")
	require.NoError(t, err)
	assert.Equal(t, "ClHud", got)
}

func TestFileObjectName(t *testing.T) {
	got, err := NewNamer(nil).FileObjectName("sh_weapon_base.star")
	require.NoError(t, err)
	assert.Equal(t, "WeaponBase", got)
}

func TestSplitLocation(t *testing.T) {
	prefix, last := SplitLocation("game.modes.Deathmatch")
	assert.Equal(t, "game.modes", prefix)
	assert.Equal(t, "Deathmatch", last)

	prefix, last = SplitLocation("Utility")
	assert.Equal(t, "", prefix)
	assert.Equal(t, "Utility", last)

	prefix, last = SplitLocation("game.*")
	assert.Equal(t, "game", prefix)
	assert.True(t, IsWildcard(last))
}

func TestPackageNameRoundTrip(t *testing.T) {
	base := filepath.Join("srv", "lua")
	dir := filepath.Join(base, "game", "modes")

	assert.Equal(t, "game.modes", PackageName(base, dir))
	assert.Equal(t, "", PackageName(base, base))
	assert.Equal(t, dir, PackageDir(base, "game.modes"))
	assert.Equal(t, base, PackageDir(base, ""))
	assert.Equal(t, "Main", JoinLocation("", "Main"))
	assert.Equal(t, "game.Main", JoinLocation("game", "Main"))
}
