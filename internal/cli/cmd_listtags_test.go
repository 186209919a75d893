package cli

import (
	"testing"
)

func Test_ListTags_Lists_Tags_Alphabetically(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)
	cli.WriteContent("exploring-actix.md", actixDoc)
	cli.WriteContent("type-safe-apis.md", typeSafeDoc)

	cli.MustRun("build")

	stdout := cli.MustRun("list-tags")

	want := "api development\napis\nrust\ntypescript"
	if stdout != want {
		t.Errorf("unexpected tag listing\nwant:\n%s\ngot:\n%s", want, stdout)
	}
}

func Test_ListTags_Counts_Documents_Per_Tag(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)
	cli.WriteContent("exploring-actix.md", actixDoc)
	cli.WriteContent("type-safe-apis.md", typeSafeDoc)
	cli.WriteContent("more-rust.md", "---\ntitle: More Rust\ndate: 2023-07-01T00:00:00Z\ntags: [rust]\n---\nbody\n")

	cli.MustRun("build")

	stdout := cli.MustRun("list-tags", "--counts")

	AssertContains(t, stdout, "rust\t2")
	AssertContains(t, stdout, "apis\t1")
}

func Test_ListTags_Shows_Ordered_Slugs_Per_Tag(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)
	cli.WriteContent("exploring-actix.md", actixDoc)
	cli.WriteContent("more-rust.md", "---\ntitle: More Rust\ndate: 2023-07-01T00:00:00Z\ntags: [rust]\n---\nbody\n")

	cli.MustRun("build")

	stdout := cli.MustRun("list-tags", "--slugs")

	// more-rust has the later timestamp, so it leads the rust list.
	AssertContains(t, stdout, "rust: more-rust, exploring-actix")
}

func Test_ListTags_Fails_Without_Manifest(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)

	stderr := cli.MustFail("list-tags")
	AssertContains(t, stderr, "no manifest found")
}

func Test_ListTags_Reads_Explicit_Manifest_Path(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)
	cli.WriteContent("exploring-actix.md", actixDoc)

	cli.MustRun("build", "--out=custom.json")

	stdout := cli.MustRun("list-tags", "--manifest=custom.json")
	AssertContains(t, stdout, "rust")
}
