package tests

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/apps/api/echo"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
	inmemdb "github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/storage/database/inmem"
	testutil "github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/tests"
)

type note struct {
	document.Base
	Text string `json:"text"`
}

func newNote() *note { return new(note) }

// scopeIgnoringRepo answers every Get as if the caller could see all branches.
type scopeIgnoringRepo[T document.Document] struct {
	document.Repository[T]
}

func (r scopeIgnoringRepo[T]) Get(ctx context.Context, _ tenancy.Scope, id string) (T, error) {
	return r.Repository.Get(ctx, tenancy.AllBranches(), id)
}

func Test_shutdownOnScopeBreach(t *testing.T) {
	app := setup(t)
	f := newFixtures(t, app)

	notes := document.Collection{Name: "notes"}
	inner := inmemdb.NewDocumentRepository(notes, newNote)
	n := &note{Text: "east only"}
	n.ID, n.BranchID = "n1", f.branchB.ID
	require.NoError(t, inner.Insert(context.Background(), n))

	validate, translator := testutil.NewValidator()
	deps := echoapi.NewDeps(app.conf, testutil.Logger{}, validate, translator, app.svcs)
	deps.Resources = append(deps.Resources, echoapi.NewResource(document.NewService(notes, scopeIgnoringRepo[*note]{inner}, document.Deps{}, newNote)))
	srv := echoapi.NewServer("", make(chan os.Signal, 1), deps)

	// the owning branch reads it normally
	req, rec := newAuthRequest(http.MethodGet, "/v1/notes/n1", getToken(t, app.conf, f.adminB))
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	select {
	case <-srv.ShutdownSignal():
		t.Fatal("unexpected shutdown signal")
	default:
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/notes/n1", getToken(t, app.conf, f.adminA))
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "east only")
	select {
	case <-srv.ShutdownSignal():
	default:
		t.Error("the server was not asked to shut down")
	}
}
