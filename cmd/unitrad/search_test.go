// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/unitrad/pkg/types"
)

func newSearchFlags(t *testing.T, flags ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	for name := range queryFlags {
		cmd.Flags().String(name, "", "")
	}
	require.NoError(t, cmd.Flags().Parse(flags))
	return cmd
}

func TestQueryFromFlags(t *testing.T) {
	cmd := newSearchFlags(t, "--title=こころ", "--year-start=1990", "--region=gifu")
	q := queryFromFlags(cmd, nil)
	assert.Equal(t, types.Query{"title": "こころ", "year_start": "1990", "region": "gifu"}, q)
}

func TestQueryFromFlags_ArgsBecomeFree(t *testing.T) {
	cmd := newSearchFlags(t)
	assert.Equal(t, types.Query{"free": "夏目 漱石"}, queryFromFlags(cmd, []string{"夏目", "漱石"}))

	cmd = newSearchFlags(t, "--free=explicit")
	assert.Equal(t, types.Query{"free": "explicit"}, queryFromFlags(cmd, []string{"ignored"}))
}

func TestFormatQuery(t *testing.T) {
	q := types.Query{"region": "gifu", "title": "猫", "author": "", "free": "x"}
	assert.Equal(t, "free=x title=猫 region=gifu", formatQuery(q))
	assert.Empty(t, formatQuery(types.Query{}))
}
