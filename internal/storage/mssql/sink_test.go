package mssql

import (
	"strings"
	"testing"
)

func TestBuildBulkInsertSQL(t *testing.T) {
	t.Parallel()

	rows := [][]any{
		{"top", 1, int64(10)},
		{"top", 2, int64(20)},
	}
	q, args := buildBulkInsertSQL("dbo.rankings", []string{"list", "position", "film_id"}, rows)

	want := "INSERT INTO [dbo].[rankings] ([list], [position], [film_id]) VALUES (@p1, @p2, @p3), (@p4, @p5, @p6)"
	if q != want {
		t.Fatalf("sql:\n got %s\nwant %s", q, want)
	}
	if len(args) != 6 || args[4] != 2 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestWrapCreateIfMissing(t *testing.T) {
	t.Parallel()

	got := wrapCreateIfMissing("lists", "[name] NVARCHAR(10)")
	if !strings.HasPrefix(got, "IF OBJECT_ID(N'lists', N'U') IS NULL BEGIN CREATE TABLE [lists] (") {
		t.Fatalf("unexpected ddl: %s", got)
	}
	for _, ddl := range schema {
		if !strings.Contains(ddl, "IF OBJECT_ID") {
			t.Fatalf("schema statement is not guarded: %s", ddl)
		}
	}
}

func TestMssqlIdent_EscapesBrackets(t *testing.T) {
	t.Parallel()

	if got := mssqlIdent("a]b"); got != "[a]]b]" {
		t.Fatalf("mssqlIdent = %s", got)
	}
}
