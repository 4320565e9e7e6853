package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/emprestaae/empresta-api/internal/geo"
	"github.com/emprestaae/empresta-api/internal/model"
)

const itemColumns = "id, owner_id, category_id, title, description, item_condition, estimated_value, daily_rate, " +
	"latitude, longitude, address, is_available, is_active, created_at, updated_at"

var itemTable = Table{
	Name:         "items",
	Columns:      itemColumns,
	Filterable:   []string{"owner_id", "category_id", "item_condition", "is_available", "is_active"},
	ActiveColumn: "is_active",
}

const imageColumns = "id, item_id, url, alt_text, is_primary, sort_order, created_at"

var imageTable = Table{
	Name:       "item_images",
	Columns:    imageColumns,
	Filterable: []string{"item_id", "is_primary"},
}

// ItemRepo owns items and their images.
type ItemRepo struct {
	*Base[model.Item]
	images *Base[model.ItemImage]
}

func NewItemRepo(ex *Executor) *ItemRepo {
	return &ItemRepo{
		Base:   NewBase[model.Item](ex, itemTable),
		images: NewBase[model.ItemImage](ex, imageTable),
	}
}

func itemCreateValues(in model.ItemCreate) Set {
	s := Set{
		{Column: "owner_id", Value: in.OwnerID},
		{Column: "category_id", Value: in.CategoryID},
		{Column: "title", Value: in.Title},
		{Column: "description", Value: in.Description},
		{Column: "item_condition", Value: string(in.Condition)},
	}
	s = setIf(s, "estimated_value", in.EstimatedValue)
	s = append(s, Assignment{Column: "daily_rate", Value: in.DailyRate})
	s = setIf(s, "latitude", in.Latitude)
	s = setIf(s, "longitude", in.Longitude)
	return setIf(s, "address", in.Address)
}

func itemPatchValues(in model.ItemPatch) Set {
	var s Set
	s = setIf(s, "category_id", in.CategoryID)
	s = setIf(s, "title", in.Title)
	s = setIf(s, "description", in.Description)
	if in.Condition != nil {
		s = append(s, Assignment{Column: "item_condition", Value: string(*in.Condition)})
	}
	s = setIf(s, "estimated_value", in.EstimatedValue)
	s = setIf(s, "daily_rate", in.DailyRate)
	s = setIf(s, "latitude", in.Latitude)
	s = setIf(s, "longitude", in.Longitude)
	s = setIf(s, "address", in.Address)
	s = setIf(s, "is_available", in.IsAvailable)
	return setIf(s, "is_active", in.IsActive)
}

func (r *ItemRepo) Create(ctx context.Context, in model.ItemCreate) (*model.Item, error) {
	return r.Base.Create(ctx, itemCreateValues(in))
}

func (r *ItemRepo) Update(ctx context.Context, id string, in model.ItemPatch) (*model.Item, error) {
	return r.Base.Update(ctx, id, itemPatchValues(in))
}

// CheckOwner returns ErrItemNotFound when the item does not exist and
// ErrForbidden when userID does not own it.
func (r *ItemRepo) CheckOwner(ctx context.Context, itemID, userID string) (*model.Item, error) {
	it, err := r.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, ErrItemNotFound
	}
	if it.OwnerID != userID {
		return nil, ErrForbidden
	}
	return it, nil
}

// itemDetailRow is the flat row behind ItemWithDetails.
type itemDetailRow struct {
	model.Item
	OwnerFirstName   string   `db:"owner_first_name"`
	OwnerLastName    string   `db:"owner_last_name"`
	OwnerAvatarURL   *string  `db:"owner_avatar_url"`
	OwnerIsVerified  bool     `db:"owner_is_verified"`
	OwnerRating      float64  `db:"owner_rating"`
	OwnerReviewCount int      `db:"owner_review_count"`
	CategoryName     string   `db:"category_name"`
	CategoryIcon     *string  `db:"category_icon"`
	CategoryColor    *string  `db:"category_color"`
	Distance         *float64 `db:"distance"`
	Relevance        *float64 `db:"relevance"`
}

func (row itemDetailRow) details(images []model.ItemImage) model.ItemWithDetails {
	if images == nil {
		images = []model.ItemImage{}
	}
	return model.ItemWithDetails{
		Item: row.Item,
		Owner: model.OwnerSummary{
			UserSummary: model.UserSummary{
				ID:         row.OwnerID,
				FirstName:  row.OwnerFirstName,
				LastName:   row.OwnerLastName,
				AvatarURL:  row.OwnerAvatarURL,
				IsVerified: row.OwnerIsVerified,
			},
			AverageRating: row.OwnerRating,
			ReviewCount:   row.OwnerReviewCount,
		},
		Category: model.CategorySummary{
			ID:    row.CategoryID,
			Name:  row.CategoryName,
			Icon:  row.CategoryIcon,
			Color: row.CategoryColor,
		},
		Images:   images,
		Distance: row.Distance,
	}
}

var itemDetailSelect = "SELECT " + prefixed("i", itemColumns) +
	", u.first_name AS owner_first_name, u.last_name AS owner_last_name" +
	", u.avatar_url AS owner_avatar_url, u.is_verified AS owner_is_verified" +
	", COALESCE(AVG(r.rating), 0) AS owner_rating, COUNT(r.id) AS owner_review_count" +
	", c.name AS category_name, c.icon AS category_icon, c.color AS category_color"

const itemDetailFrom = " FROM items i" +
	" JOIN users u ON u.id = i.owner_id" +
	" JOIN categories c ON c.id = i.category_id" +
	" LEFT JOIN reviews r ON r.reviewed_id = i.owner_id"

// FindWithDetails returns the item with owner, category and images, or nil.
// When viewer and the item both have coordinates the distance between them
// is filled in.
func (r *ItemRepo) FindWithDetails(ctx context.Context, id string, viewer *geo.Point) (*model.ItemWithDetails, error) {
	row, err := Get[itemDetailRow](ctx, r.ex, itemDetailSelect+itemDetailFrom+" WHERE i.id = ? GROUP BY i.id", id)
	if err != nil || row == nil {
		return nil, err
	}
	images, err := r.ListImages(ctx, id)
	if err != nil {
		return nil, err
	}
	out := row.details(images)
	if at := geo.PointFrom(row.Latitude, row.Longitude); viewer != nil && at != nil {
		d := geo.Distance(*viewer, *at)
		out.Distance = &d
	}
	return &out, nil
}

// FindByOwner pages through the owner's active items, newest first.
func (r *ItemRepo) FindByOwner(ctx context.Context, ownerID string, req PageRequest) (Page[model.Item], error) {
	return r.FindWithPagination(ctx, Filters{"owner_id": ownerID, "is_active": true}, req)
}

// FindNearby returns active, available items within radiusKm of center,
// nearest first.
func (r *ItemRepo) FindNearby(ctx context.Context, center geo.Point, radiusKm float64, limit int) ([]model.ItemWithDistance, error) {
	w := &where{}
	w.add("i.is_active = 1")
	w.add("i.is_available = 1")
	boxCondition(w, "i", center, radiusKm)

	q := "SELECT " + prefixed("i", itemColumns) + ", " + distanceSQL("i") + " AS distance FROM items i" +
		w.sql() + " HAVING distance <= ? ORDER BY distance ASC LIMIT ?"
	args := append(distanceArgs(center), w.args...)
	args = append(args, radiusKm, limit)
	return Select[model.ItemWithDistance](ctx, r.ex, q, args...)
}

const matchSQL = "MATCH(i.title, i.description) AGAINST (? IN NATURAL LANGUAGE MODE)"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchItems runs the catalogue search.  The location given in s wins over
// viewer for the distance column; with neither, no distance is computed.
// Results are ordered by relevance, then distance, then recency.
func (r *ItemRepo) SearchItems(ctx context.Context, s model.ItemSearch, viewer *geo.Point, req PageRequest) (Page[model.ItemWithDetails], error) {
	sel := itemDetailSelect
	var selArgs []any
	search := strings.TrimSpace(s.Search)
	if search != "" {
		sel += ", " + matchSQL + " AS relevance"
		selArgs = append(selArgs, search)
	}

	ref := viewer
	if p := geo.PointFrom(s.Latitude, s.Longitude); p != nil {
		ref = p
	}
	if ref != nil {
		sel += ", " + distanceSQL("i") + " AS distance"
		selArgs = append(selArgs, distanceArgs(*ref)...)
	}

	w := &where{}
	w.add("i.is_active = 1")
	if search != "" {
		like := "%" + likeEscaper.Replace(search) + "%"
		w.add("("+matchSQL+" OR i.title LIKE ? OR i.description LIKE ?)", search, like, like)
	}
	if s.CategoryID != "" {
		w.add("i.category_id = ?", s.CategoryID)
	}
	if s.Condition != "" {
		w.add("i.item_condition = ?", string(s.Condition))
	}
	if s.OwnerID != "" {
		w.add("i.owner_id = ?", s.OwnerID)
	}
	if s.IsAvailable != nil {
		w.add("i.is_available = ?", *s.IsAvailable)
	}
	if s.MinRate != nil {
		w.add("i.daily_rate >= ?", *s.MinRate)
	}
	if s.MaxRate != nil {
		w.add("i.daily_rate <= ?", *s.MaxRate)
	}

	var having []string
	var havingArgs []any
	if s.MinRating != nil {
		having = append(having, "owner_rating >= ?")
		havingArgs = append(havingArgs, *s.MinRating)
	}
	if ref != nil && s.RadiusKm != nil {
		boxCondition(w, "i", *ref, *s.RadiusKm)
		having = append(having, "distance <= ?")
		havingArgs = append(havingArgs, *s.RadiusKm)
	}

	grouped := sel + itemDetailFrom + w.sql() + " GROUP BY i.id"
	if len(having) > 0 {
		grouped += " HAVING " + strings.Join(having, " AND ")
	}
	args := append(append(selArgs, w.args...), havingArgs...)

	total, err := r.ex.Count(ctx, "SELECT COUNT(*) FROM ("+grouped+") AS matched", args...)
	if err != nil {
		return Page[model.ItemWithDetails]{}, err
	}

	var order []string
	if search != "" {
		order = append(order, "relevance DESC")
	}
	if ref != nil {
		order = append(order, "distance ASC")
	}
	order = append(order, "i.created_at DESC")

	q := grouped + " ORDER BY " + strings.Join(order, ", ") + " LIMIT ? OFFSET ?"
	rows, err := Select[itemDetailRow](ctx, r.ex, q, append(args, req.Limit, req.Offset())...)
	if err != nil {
		return Page[model.ItemWithDetails]{}, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	images, err := r.imagesFor(ctx, ids)
	if err != nil {
		return Page[model.ItemWithDetails]{}, err
	}

	data := make([]model.ItemWithDetails, 0, len(rows))
	for _, row := range rows {
		data = append(data, row.details(images[row.ID]))
	}
	return NewPage(data, total, req), nil
}

// imagesFor loads the images of several items in one statement.
func (r *ItemRepo) imagesFor(ctx context.Context, itemIDs []string) (map[string][]model.ItemImage, error) {
	out := make(map[string][]model.ItemImage, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In("SELECT "+imageColumns+" FROM item_images WHERE item_id IN (?)"+
		" ORDER BY is_primary DESC, sort_order ASC, created_at ASC", itemIDs)
	if err != nil {
		return nil, err
	}
	images, err := Select[model.ItemImage](ctx, r.ex, r.ex.DB().Rebind(q), args...)
	if err != nil {
		return nil, err
	}
	for _, img := range images {
		out[img.ItemID] = append(out[img.ItemID], img)
	}
	return out, nil
}

// ListImages returns the item's images, primary first.
func (r *ItemRepo) ListImages(ctx context.Context, itemID string) ([]model.ItemImage, error) {
	return Select[model.ItemImage](ctx, r.ex, "SELECT "+imageColumns+" FROM item_images WHERE item_id = ?"+
		" ORDER BY is_primary DESC, sort_order ASC, created_at ASC", itemID)
}

const unsetPrimarySQL = "UPDATE item_images SET is_primary = 0 WHERE item_id = ?"

// AddImage stores an image URL for the item.  A primary image replaces the
// previous primary in the same transaction.
func (r *ItemRepo) AddImage(ctx context.Context, in model.ItemImageCreate) (*model.ItemImage, error) {
	id := uuid.NewString()
	s := Set{
		{Column: "id", Value: id},
		{Column: "item_id", Value: in.ItemID},
		{Column: "url", Value: in.URL},
	}
	s = setIf(s, "alt_text", in.AltText)
	s = append(s,
		Assignment{Column: "is_primary", Value: in.IsPrimary},
		Assignment{Column: "sort_order", Value: in.SortOrder},
	)
	ins := BuildInsert(imageTable.Name, s)

	err := r.ex.InTx(ctx, func(tx *sqlx.Tx) error {
		if in.IsPrimary {
			if _, err := tx.ExecContext(ctx, unsetPrimarySQL, in.ItemID); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, ins.SQL, ins.Args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.images.FindByID(ctx, id)
}

// SetPrimaryImage makes imageID the only primary image of the item.
// ErrImageNotFound is returned, and nothing changes, when the image does not
// belong to the item.
func (r *ItemRepo) SetPrimaryImage(ctx context.Context, itemID, imageID string) error {
	return r.ex.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, unsetPrimarySQL, itemID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "UPDATE item_images SET is_primary = 1 WHERE id = ? AND item_id = ?", imageID, itemID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrImageNotFound
		}
		return nil
	})
}

// DeleteImage removes one image of the item and reports whether it existed.
func (r *ItemRepo) DeleteImage(ctx context.Context, itemID, imageID string) (bool, error) {
	res, err := r.ex.Exec(ctx, "DELETE FROM item_images WHERE id = ? AND item_id = ?", imageID, itemID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
