package travel

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/vedablog/internal/data/repos/testutil"
	types "github.com/yungbote/vedablog/internal/domain"
	"github.com/yungbote/vedablog/internal/domain/apperr"
	"github.com/yungbote/vedablog/internal/domain/user"
	"github.com/yungbote/vedablog/internal/pkg/dbctx"
)

func TestFavoriteAddRemoveRestoresState(t *testing.T) {
	db := testutil.DB(t)
	repo := NewFavoriteRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())
	kyoto := testutil.SeedDestination(t, db, "kyoto", "Kyoto", true)

	if _, err := repo.Add(dbc, "user-b", kyoto.ID); err != nil {
		t.Fatalf("seed favorite: %v", err)
	}
	before, _ := repo.CountByDestination(dbc, kyoto.ID)

	fav, err := repo.Add(dbc, "user-a", kyoto.ID)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if fav.ID == 0 || fav.UserID != "user-a" {
		t.Fatalf("unexpected favorite %+v", fav)
	}
	if ok, _ := repo.Exists(dbc, "user-a", kyoto.ID); !ok {
		t.Fatalf("expected favorite to exist")
	}

	removed, err := repo.Remove(dbc, "user-a", kyoto.ID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed == nil || removed.ID != fav.ID {
		t.Fatalf("expected removed row %d, got %+v", fav.ID, removed)
	}
	if ok, _ := repo.Exists(dbc, "user-a", kyoto.ID); ok {
		t.Fatalf("expected favorite gone")
	}
	after, _ := repo.CountByDestination(dbc, kyoto.ID)
	if after != before {
		t.Fatalf("expected count %d, got %d", before, after)
	}

	again, err := repo.Remove(dbc, "user-a", kyoto.ID)
	if err != nil || again != nil {
		t.Fatalf("expected (nil, nil) removing absent favorite, got (%+v, %v)", again, err)
	}
}

func TestFavoriteDuplicateIsDistinguished(t *testing.T) {
	db := testutil.DB(t)
	repo := NewFavoriteRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())
	kyoto := testutil.SeedDestination(t, db, "kyoto", "Kyoto", true)

	if _, err := repo.Add(dbc, "user-a", kyoto.ID); err != nil {
		t.Fatalf("Add: %v", err)
	}
	_, err := repo.Add(dbc, "user-a", kyoto.ID)
	if !apperr.IsCode(err, apperr.DuplicateFavorite) {
		t.Fatalf("expected DuplicateFavorite, got %v", err)
	}
	n, _ := repo.CountByUser(dbc, "user-a")
	if n != 1 {
		t.Fatalf("expected one stored row, got %d", n)
	}
}

func TestFavoriteListByUserJoinsDestination(t *testing.T) {
	db := testutil.DB(t)
	repo := NewFavoriteRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())
	kyoto := testutil.SeedDestination(t, db, "kyoto", "Kyoto", true)
	lisbon := testutil.SeedDestination(t, db, "lisbon", "Lisbon", false)

	_, _ = repo.Add(dbc, "user-a", kyoto.ID)
	_, _ = repo.Add(dbc, "user-a", lisbon.ID)
	_, _ = repo.Add(dbc, "user-b", kyoto.ID)

	rows, err := repo.ListByUser(dbc, "user-a")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 favorites, got %d", len(rows))
	}
	if rows[0].Slug != "lisbon" || rows[1].Title != "Kyoto" {
		t.Fatalf("expected newest first with joined fields, got %+v", rows)
	}
}

func TestCommentApprovalGatesVisibility(t *testing.T) {
	db := testutil.DB(t)
	repo := NewCommentRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())
	kyoto := testutil.SeedDestination(t, db, "kyoto", "Kyoto", true)

	c := &types.Comment{UserID: "user-a", DestinationID: kyoto.ID, Content: "Loved the temples"}
	if err := repo.Create(dbc, c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	public, err := repo.ListByDestination(dbc, kyoto.ID, true)
	if err != nil || len(public) != 0 {
		t.Fatalf("expected unapproved comment hidden, got %+v (%v)", public, err)
	}
	pending, err := repo.ListPending(dbc, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected one pending comment, got %+v (%v)", pending, err)
	}

	approved, err := repo.Approve(dbc, c.ID)
	if err != nil || approved == nil || !approved.Approved {
		t.Fatalf("Approve: %+v (%v)", approved, err)
	}
	public, err = repo.ListByDestination(dbc, kyoto.ID, true)
	if err != nil || len(public) != 1 {
		t.Fatalf("expected approved comment visible, got %+v (%v)", public, err)
	}
	if public[0].DisplayName != nil || public[0].Author() != "Anonymous" {
		t.Fatalf("expected null display name without preferences row, got %+v", public[0])
	}

	missing, err := repo.Approve(dbc, c.ID+100)
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) approving unknown comment, got (%+v, %v)", missing, err)
	}
}

func TestCommentListJoinsDisplayNameNewestFirst(t *testing.T) {
	db := testutil.DB(t)
	repo := NewCommentRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())
	kyoto := testutil.SeedDestination(t, db, "kyoto", "Kyoto", true)
	if err := db.Create(user.NewPreferences("user-a", "Ada")).Error; err != nil {
		t.Fatalf("seed prefs: %v", err)
	}

	for _, body := range []string{"first comment", "second comment"} {
		c := &types.Comment{UserID: "user-a", DestinationID: kyoto.ID, Content: body, Approved: true}
		if err := repo.Create(dbc, c); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	rows, err := repo.ListByDestination(dbc, kyoto.ID, false)
	if err != nil {
		t.Fatalf("ListByDestination: %v", err)
	}
	if len(rows) != 2 || !strings.HasPrefix(rows[0].Content, "second") {
		t.Fatalf("expected newest first, got %+v", rows)
	}
	if rows[0].Author() != "Ada" {
		t.Fatalf("expected joined display name, got %q", rows[0].Author())
	}
}

func TestRatingUpsertLastWriteWins(t *testing.T) {
	db := testutil.DB(t)
	repo := NewRatingRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())
	kyoto := testutil.SeedDestination(t, db, "kyoto", "Kyoto", true)

	if _, err := repo.Upsert(dbc, "user-a", kyoto.ID, 4); err != nil {
		t.Fatalf("Upsert 4: %v", err)
	}
	if _, err := repo.Upsert(dbc, "user-a", kyoto.ID, 5); err != nil {
		t.Fatalf("Upsert 5: %v", err)
	}
	agg, err := repo.Aggregate(dbc, kyoto.ID)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.Average != 5.00 || agg.Count != 1 {
		t.Fatalf("expected {5.00 1}, got %+v", agg)
	}

	if _, err := repo.Upsert(dbc, "user-a", kyoto.ID, 5); err != nil {
		t.Fatalf("Upsert same value: %v", err)
	}
	var n int64
	db.Model(&types.Rating{}).Count(&n)
	if n != 1 {
		t.Fatalf("expected one stored rating, got %d", n)
	}

	if _, err := repo.Upsert(dbc, "user-b", kyoto.ID, 2); err != nil {
		t.Fatalf("Upsert user-b: %v", err)
	}
	agg, _ = repo.Aggregate(dbc, kyoto.ID)
	if agg.Average != 3.5 || agg.Count != 2 {
		t.Fatalf("expected {3.5 2}, got %+v", agg)
	}

	mine, err := repo.GetByUser(dbc, "user-a", kyoto.ID)
	if err != nil || mine == nil || mine.Rating != 5 {
		t.Fatalf("unexpected user rating %+v (%v)", mine, err)
	}
}

func TestRatingUpsertOverwriteReturnsStoredRow(t *testing.T) {
	db := testutil.DB(t)
	repo := NewRatingRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())
	kyoto := testutil.SeedDestination(t, db, "kyoto", "Kyoto", true)

	first, err := repo.Upsert(dbc, "user-a", kyoto.ID, 3)
	if err != nil {
		t.Fatalf("Upsert 3: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	second, err := repo.Upsert(dbc, "user-a", kyoto.ID, 5)
	if err != nil {
		t.Fatalf("Upsert 5: %v", err)
	}

	stored, err := repo.GetByUser(dbc, "user-a", kyoto.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetByUser: %+v (%v)", stored, err)
	}
	if second.ID != first.ID || second.ID != stored.ID {
		t.Fatalf("expected same row id, got first=%d second=%d stored=%d", first.ID, second.ID, stored.ID)
	}
	if second.Rating != 5 {
		t.Fatalf("expected returned rating 5, got %d", second.Rating)
	}
	if !second.CreatedAt.Equal(stored.CreatedAt) {
		t.Fatalf("returned created_at %v differs from stored %v", second.CreatedAt, stored.CreatedAt)
	}
	if !second.UpdatedAt.After(second.CreatedAt) {
		t.Fatalf("expected updated_at after created_at, got %v <= %v", second.UpdatedAt, second.CreatedAt)
	}
}

func TestRatingAggregateEmpty(t *testing.T) {
	db := testutil.DB(t)
	repo := NewRatingRepo(db, testutil.Logger(t))
	kyoto := testutil.SeedDestination(t, db, "kyoto", "Kyoto", true)
	agg, err := repo.Aggregate(dbctx.New(context.Background()), kyoto.ID)
	if err != nil || agg.Count != 0 || agg.Average != 0 {
		t.Fatalf("expected zero aggregate, got %+v (%v)", agg, err)
	}
}
