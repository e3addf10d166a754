// SPDX-License-Identifier: MPL-2.0

package aptly

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"packmule/internal/dist"

	"github.com/charmbracelet/log"
)

// fakeRunner records every argument vector and answers from canned
// per-command responses keyed by the joined argument string.
type fakeRunner struct {
	calls  [][]string
	stdout map[string]string
	fail   map[string]error
}

func (f *fakeRunner) Run(_ context.Context, args ...string) (Output, error) {
	f.calls = append(f.calls, args)
	key := strings.Join(args, " ")
	if err, ok := f.fail[key]; ok {
		return Output{}, err
	}
	return Output{Stdout: f.stdout[key]}, nil
}

func (f *fakeRunner) call(i int) string {
	if i >= len(f.calls) {
		return ""
	}
	return strings.Join(f.calls[i], " ")
}

func newTestService(runner Runner) *Service {
	return NewService(runner, Config{
		Logger: log.New(io.Discard),
		Now: func() time.Time {
			return time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)
		},
	})
}

func parseDists(t *testing.T, aliases ...string) []dist.Distribution {
	t.Helper()

	out, err := dist.ParseAll(aliases)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func writeDeb(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("deb"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEnsureRepositoriesCreatesOnlyMissing(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{stdout: map[string]string{
		// Two of the sixteen expected repositories already exist.
		"repo list -raw": "repo-rabbitmq-server-noble\nrepo-rabbitmq-erlang-jammy\n",
	}}
	svc := newTestService(runner)

	if err := svc.EnsureRepositories(context.Background()); err != nil {
		t.Fatalf("EnsureRepositories returned error: %v", err)
	}

	var created []string
	for _, call := range runner.calls {
		if len(call) == 3 && call[0] == "repo" && call[1] == "create" {
			created = append(created, call[2])
		}
	}

	// 6 server + 4 erlang + 6 cli-tools, minus the 2 pre-existing ones.
	if len(created) != 14 {
		t.Fatalf("created %d repositories %v, want 14", len(created), created)
	}
	for _, name := range created {
		if name == "repo-rabbitmq-server-noble" || name == "repo-rabbitmq-erlang-jammy" {
			t.Errorf("repository %s already existed and was created again", name)
		}
	}
}

func TestAddPackageBareDeb(t *testing.T) {
	t.Parallel()

	path := writeDeb(t, "rabbitmq-server_4.1.3-1_all.deb")
	runner := &fakeRunner{}
	svc := newTestService(runner)

	targets := parseDists(t, "noble", "bookworm")
	if err := svc.AddPackage(context.Background(), dist.ProjectServer, targets, path, "26-Aug-26"); err != nil {
		t.Fatalf("AddPackage returned error: %v", err)
	}

	want := []string{
		"repo add -architectures=amd64,arm64,armel,armhf,i386 repo-rabbitmq-server-noble " + path,
		"repo add -architectures=amd64,arm64,armel,armhf,i386 repo-rabbitmq-server-bookworm " + path,
		"snapshot drop -force snap-rabbitmq-server-noble-26-Aug-26",
		"snapshot create snap-rabbitmq-server-noble-26-Aug-26 from repo repo-rabbitmq-server-noble",
		"snapshot drop -force snap-rabbitmq-server-bookworm-26-Aug-26",
		"snapshot create snap-rabbitmq-server-bookworm-26-Aug-26 from repo repo-rabbitmq-server-bookworm",
	}
	if len(runner.calls) != len(want) {
		t.Fatalf("got %d invocations, want %d:\n%v", len(runner.calls), len(want), runner.calls)
	}
	for i, w := range want {
		if got := runner.call(i); got != w {
			t.Errorf("invocation %d = %q, want %q", i, got, w)
		}
	}
}

func TestAddPackageOmitsArchitecturesForSingleArchProjects(t *testing.T) {
	t.Parallel()

	path := writeDeb(t, "erlang-base_1:27.3-1_amd64.deb")
	runner := &fakeRunner{}
	svc := newTestService(runner)

	targets := parseDists(t, "noble")
	if err := svc.AddPackage(context.Background(), dist.ProjectErlang, targets, path, "26-Aug-26"); err != nil {
		t.Fatalf("AddPackage returned error: %v", err)
	}

	if got, want := runner.call(0), "repo add repo-rabbitmq-erlang-noble "+path; got != want {
		t.Errorf("invocation 0 = %q, want %q", got, want)
	}
}

func TestAddPackageMissingFile(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	svc := newTestService(runner)

	err := svc.AddPackage(context.Background(), dist.ProjectServer, parseDists(t, "noble"), "/no/such/file.deb", "s")
	if !errors.Is(err, ErrPackageMissing) {
		t.Fatalf("error = %v, want ErrPackageMissing", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("no invocation should happen for a missing file, got %v", runner.calls)
	}
}

func TestImportFileSkipsSnapshots(t *testing.T) {
	t.Parallel()

	path := writeDeb(t, "rabbitmq-server_4.1.3-1_all.deb")
	runner := &fakeRunner{}
	svc := newTestService(runner)

	targets := parseDists(t, "noble", "jammy")
	if err := svc.ImportFile(context.Background(), dist.ProjectServer, targets, path); err != nil {
		t.Fatalf("ImportFile returned error: %v", err)
	}

	for _, call := range runner.calls {
		if call[0] == "snapshot" {
			t.Errorf("ImportFile must not touch snapshots, got %v", call)
		}
	}
	if len(runner.calls) != 2 {
		t.Errorf("got %d invocations, want one repo add per distribution", len(runner.calls))
	}
}

func TestRemoveVersionQueries(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	svc := newTestService(runner)

	targets := parseDists(t, "bookworm")
	if err := svc.RemoveVersion(context.Background(), dist.ProjectErlang, targets, "1:27.3.4.6-1", "26-Aug-26"); err != nil {
		t.Fatalf("RemoveVersion returned error: %v", err)
	}

	got := runner.calls[0]
	want := []string{"repo", "remove", "repo-rabbitmq-erlang-bookworm", "Name (~ ^erlang), Version (= 1:27.3.4.6-1)"}
	if len(got) != len(want) {
		t.Fatalf("remove invocation = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("remove arg %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPublishSwitchesExistingAndPublishesNew(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{stdout: map[string]string{
		// noble is already published, bookworm is not.
		"publish list": "  * snapshot [...] rabbitmq-server/ubuntu/noble/noble publishes ...\n",
	}}
	svc := newTestService(runner)

	targets := parseDists(t, "noble", "bookworm")
	if err := svc.Publish(context.Background(), dist.ProjectServer, targets); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	gpg := "-gpg-key=" + DefaultSigningKey
	want := []string{
		"publish list",
		"publish switch " + gpg + " noble rabbitmq-server/ubuntu/noble snap-rabbitmq-server-noble-26-Aug-26",
		"publish list",
		"publish snapshot -distribution bookworm " + gpg + " snap-rabbitmq-server-bookworm-26-Aug-26 rabbitmq-server/debian/bookworm",
	}
	if len(runner.calls) != len(want) {
		t.Fatalf("got %d invocations, want %d:\n%v", len(runner.calls), len(want), runner.calls)
	}
	for i, w := range want {
		if got := runner.call(i); got != w {
			t.Errorf("invocation %d = %q, want %q", i, got, w)
		}
	}
}

func TestPublishAbortsOnFirstFailure(t *testing.T) {
	t.Parallel()

	cmdErr := &CommandError{Args: []string{"publish", "switch"}, Status: 1}
	gpg := "-gpg-key=" + DefaultSigningKey
	runner := &fakeRunner{
		stdout: map[string]string{
			"publish list": "rabbitmq-server/ubuntu/noble/noble\nrabbitmq-server/debian/bookworm/bookworm\n",
		},
		fail: map[string]error{
			"publish switch " + gpg + " noble rabbitmq-server/ubuntu/noble snap-rabbitmq-server-noble-26-Aug-26": cmdErr,
		},
	}
	svc := newTestService(runner)

	err := svc.Publish(context.Background(), dist.ProjectServer, parseDists(t, "noble", "bookworm"))
	var got *CommandError
	if !errors.As(err, &got) {
		t.Fatalf("error = %v, want the CommandError from the failed switch", err)
	}
	// The failure must stop the loop before bookworm is touched.
	for _, call := range runner.calls {
		if strings.Contains(strings.Join(call, " "), "bookworm") {
			t.Errorf("bookworm was processed after the noble failure: %v", call)
		}
	}
}

func TestDeleteSnapshotsAbsorbsFailures(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{fail: map[string]error{
		"snapshot drop -force snap-rabbitmq-cli-noble-26-Aug-26": &CommandError{
			Args: []string{"snapshot", "drop"}, Status: 1, Stderr: "snapshot does not exist",
		},
	}}
	svc := newTestService(runner)

	outcomes := svc.DeleteSnapshots(context.Background(), dist.ProjectCliTools, parseDists(t, "noble", "jammy"), "26-Aug-26")
	want := []DropOutcome{DropIgnoredFailure, DropSucceeded}
	if len(outcomes) != len(want) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(want))
	}
	for i, w := range want {
		if outcomes[i] != w {
			t.Errorf("outcome %d = %v, want %v", i, outcomes[i], w)
		}
	}
}

func TestListSnapshotsStreamsOutput(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{stdout: map[string]string{
		"snapshot show -with-packages snap-rabbitmq-server-noble-26-Aug-26":    "noble packages\n",
		"snapshot show -with-packages snap-rabbitmq-server-bookworm-26-Aug-26": "bookworm packages\n",
	}}
	svc := newTestService(runner)

	var sb strings.Builder
	err := svc.ListSnapshots(context.Background(), &sb, dist.ProjectServer, parseDists(t, "noble", "bookworm"), "26-Aug-26")
	if err != nil {
		t.Fatalf("ListSnapshots returned error: %v", err)
	}
	if got, want := sb.String(), "noble packages\nbookworm packages\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestAvailable(t *testing.T) {
	t.Parallel()

	if err := Available(context.Background(), &fakeRunner{}); err != nil {
		t.Errorf("Available with a responding runner returned %v", err)
	}

	missing := &fakeRunner{fail: map[string]error{"version": ErrNotInstalled}}
	if err := Available(context.Background(), missing); !errors.Is(err, ErrNotInstalled) {
		t.Errorf("Available with a missing binary returned %v, want ErrNotInstalled", err)
	}
}
