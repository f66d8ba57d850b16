package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLintFlagsMissingMarker(t *testing.T) {
	l := newLinter()
	src := "package q\n\nconst QOk = `--sql 57affc76-445b-4a45-a33f-50b589dda6eb\nselect 1;`\n\nconst QBare = `select id from donations;`\n\nconst Label = \"not a query\"\n"
	require.NoError(t, l.lintFile("q.go", src))

	got := l.finish()
	require.Len(t, got, 1)
	require.Equal(t, "QBare", got[0].name)
	require.Equal(t, 6, got[0].line)
	require.Equal(t, 2, l.queries)
}

func TestLintFlagsSharedMarker(t *testing.T) {
	l := newLinter()
	a := "package q\n\nconst QFirst = `--sql 57affc76-445b-4a45-a33f-50b589dda6eb\nselect 1;`\n"
	b := "package q\n\nconst QSecond = `--sql 57affc76-445b-4a45-a33f-50b589dda6eb\nupdate donations set status = 'failed';`\n"
	require.NoError(t, l.lintFile("a.go", a))
	require.NoError(t, l.lintFile("b.go", b))

	got := l.finish()
	require.Len(t, got, 1)
	require.Equal(t, "QSecond", got[0].name)
	require.True(t, strings.Contains(got[0].message, "QFirst"))
}

func TestLintAcceptsRepositoryQueries(t *testing.T) {
	l := newLinter()
	require.NoError(t, l.lintPath("../../sqlinline"))
	require.Empty(t, l.finish())
	require.Positive(t, l.queries)
}
