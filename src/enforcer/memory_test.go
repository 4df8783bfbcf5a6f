// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package enforcer

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLifecycle(t *testing.T) {
	m := NewMemory("")
	ctx := context.Background()

	id, err := m.CreateAddressSet(ctx, "example.com", []string{"2001:db8::1", "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{id: {"10.0.0.1", "2001:db8::1"}}, m.Sets())

	require.NoError(t, m.CreateRule(ctx, "Block example.com", id, Outbound, Block))
	assert.Equal(t, []Rule{{Name: "Block example.com", SetID: id, Direction: Outbound, Action: Block}}, m.Rules())

	require.NoError(t, m.UpdateAddressSet(ctx, id, []string{"10.0.0.2"}))
	assert.Equal(t, []string{"10.0.0.2"}, m.Sets()[id])

	require.NoError(t, m.DeleteRule(ctx, "Block example.com"))
	require.NoError(t, m.DeleteAddressSet(ctx, id))
	assert.Empty(t, m.Sets())
	assert.Empty(t, m.Rules())
}

func TestMemoryErrors(t *testing.T) {
	m := NewMemory("test")
	ctx := context.Background()

	_, err := m.CreateAddressSet(ctx, "bad", []string{"256.0.0.1"})
	assert.ErrorIs(t, err, ErrInvalidAddress)

	assert.ErrorIs(t, m.UpdateAddressSet(ctx, "test-missing", nil), ErrSetNotFound)
	assert.ErrorIs(t, m.DeleteAddressSet(ctx, "test-missing"), ErrSetNotFound)
	assert.ErrorIs(t, m.CreateRule(ctx, "r", "test-missing", Outbound, Block), ErrSetNotFound)
	assert.ErrorIs(t, m.DeleteRule(ctx, "r"), ErrRuleNotFound)

	id, err := m.CreateAddressSet(ctx, "ok", nil)
	require.NoError(t, err)
	require.NoError(t, m.CreateRule(ctx, "r", id, Outbound, Block))
	assert.ErrorIs(t, m.CreateRule(ctx, "r", id, Outbound, Block), ErrRuleExists)
}

func TestMemorySetsReturnsCopy(t *testing.T) {
	m := NewMemory("")
	id, err := m.CreateAddressSet(context.Background(), "x", []string{"10.0.0.1"})
	require.NoError(t, err)

	m.Sets()[id][0] = "mutated"
	assert.Equal(t, []string{"10.0.0.1"}, m.Sets()[id])
}

func TestNewID(t *testing.T) {
	id := NewID("fqdnb")
	assert.Regexp(t, regexp.MustCompile(`^fqdnb-[0-9a-f]{12}$`), id)
	assert.NotEqual(t, id, NewID("fqdnb"))
	assert.LessOrEqual(t, len(NewID("abcdefghijklmno"))+3, 31, "longest set name fits ipset's limit")
}

func TestValidatePrefix(t *testing.T) {
	assert.NoError(t, ValidatePrefix("fqdnb"))
	assert.NoError(t, ValidatePrefix("fw_1"))
	assert.ErrorIs(t, ValidatePrefix(""), ErrInvalidPrefix)
	assert.ErrorIs(t, ValidatePrefix("1abc"), ErrInvalidPrefix)
	assert.ErrorIs(t, ValidatePrefix("has-dash"), ErrInvalidPrefix)
	assert.ErrorIs(t, ValidatePrefix("abcdefghijklmnop"), ErrInvalidPrefix)
}

func TestParseDirectionAndAction(t *testing.T) {
	d, err := ParseDirection(" OUT ")
	require.NoError(t, err)
	assert.Equal(t, Outbound, d)

	d, err = ParseDirection("inbound")
	require.NoError(t, err)
	assert.Equal(t, Inbound, d)
	assert.Equal(t, "inbound", d.String())

	_, err = ParseDirection("sideways")
	assert.Error(t, err)

	a, err := ParseAction("DROP")
	require.NoError(t, err)
	assert.Equal(t, Block, a)

	a, err = ParseAction("allow")
	require.NoError(t, err)
	assert.Equal(t, Allow, a)
	assert.Equal(t, "allow", a.String())

	_, err = ParseAction("maybe")
	assert.Error(t, err)

	assert.Equal(t, "Direction(7)", Direction(7).String())
	assert.Equal(t, "Action(9)", Action(9).String())
}
