package cli

import (
	"strings"
	"testing"
)

func Test_Query_Returns_Slugs_For_Tag(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)
	cli.WriteContent("exploring-actix.md", actixDoc)
	cli.WriteContent("type-safe-apis.md", typeSafeDoc)

	cli.MustRun("build")

	stdout := cli.MustRun("query", "--tag=apis")
	AssertContains(t, stdout, "exploring-actix")
	AssertNotContains(t, stdout, "type-safe-apis")

	stdout = cli.MustRun("query", "--tag=typescript")
	AssertContains(t, stdout, "type-safe-apis")
	AssertNotContains(t, stdout, "exploring-actix")
}

func Test_Query_Unknown_Tag_Is_Empty_Not_An_Error(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)
	cli.WriteContent("exploring-actix.md", actixDoc)

	cli.MustRun("build")

	stdout := cli.MustRun("query", "--tag=nope")
	if stdout != "" {
		t.Errorf("unknown tag should yield no output, got:\n%s", stdout)
	}
}

func Test_Query_All_Orders_Newest_First(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)
	cli.WriteContent("exploring-actix.md", actixDoc)
	cli.WriteContent("type-safe-apis.md", typeSafeDoc)

	cli.MustRun("build")

	stdout := cli.MustRun("query", "--all")

	lines := strings.Split(stdout, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), stdout)
	}

	AssertContains(t, lines[0], "exploring-actix")
	AssertContains(t, lines[1], "type-safe-apis")
}

func Test_Query_JSON_Output(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)
	cli.WriteContent("exploring-actix.md", actixDoc)

	cli.MustRun("build")

	stdout := cli.MustRun("query", "--tag=rust", "--json")
	AssertContains(t, stdout, `"slug": "exploring-actix"`)
	AssertContains(t, stdout, `"published_at": "2023-06-24T12:02:53Z"`)
}

func Test_Query_Fails_Without_Index(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)

	stderr := cli.MustFail("query", "--tag=rust")
	AssertContains(t, stderr, "no index found")
}

func Test_Query_Requires_Tag_Or_All(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)

	stderr := cli.MustFail("query")
	AssertContains(t, stderr, "--tag or --all is required")

	stderr = cli.MustFail("query", "--tag=x", "--all")
	AssertContains(t, stderr, "mutually exclusive")
}
