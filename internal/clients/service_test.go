package clients_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clientdesk/clientdesk/internal/clients"
	"github.com/clientdesk/clientdesk/internal/shared"
	_ "github.com/clientdesk/clientdesk/testing"
)

type fakeRepo struct {
	records map[int64]clients.Client
	search  string
}

func (f *fakeRepo) List(ctx context.Context, search string) ([]clients.Client, error) {
	f.search = search
	out := make([]clients.Client, 0, len(f.records))
	for _, c := range f.records {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (clients.Client, error) {
	c, ok := f.records[id]
	if !ok {
		return clients.Client{}, shared.ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) Create(ctx context.Context, c clients.Client) (clients.Client, error) {
	c.ID = int64(len(f.records) + 1)
	if f.records == nil {
		f.records = make(map[int64]clients.Client)
	}
	f.records[c.ID] = c
	return c, nil
}

func (f *fakeRepo) Update(ctx context.Context, c clients.Client) (clients.Client, error) {
	f.records[c.ID] = c
	return c, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := f.records[id]; !ok {
		return shared.ErrNotFound
	}
	delete(f.records, id)
	return nil
}

func TestCreateRequiresName(t *testing.T) {
	service := clients.NewService(&fakeRepo{})

	_, err := service.Create(context.Background(), clients.Client{Name: "   "})
	require.Error(t, err)

	created, err := service.Create(context.Background(), clients.Client{Name: "  Acme Corp  "})
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", created.Name)
}

func TestListTrimsSearchTerm(t *testing.T) {
	repo := &fakeRepo{}
	service := clients.NewService(repo)

	_, err := service.List(context.Background(), "  acme ")
	require.NoError(t, err)
	require.Equal(t, "acme", repo.search)
}

func TestDeleteMissingClient(t *testing.T) {
	service := clients.NewService(&fakeRepo{})

	err := service.Delete(context.Background(), 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
