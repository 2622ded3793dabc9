package catalog

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/apperr"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/patch"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store/memory"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), "unexpected error: %v", err)
}

type node struct {
	id, parent string
	children   []*node
}

func TestBuildTree(t *testing.T) {
	records := []node{
		{id: "a"},
		{id: "b", parent: "a"},
		{id: "c", parent: "b"},
		{id: "d"},
		{id: "e", parent: "a"},
		{id: "orphan", parent: "missing"},
	}

	roots := BuildTree(records,
		func(n *node) string { return n.id },
		func(n *node) (string, bool) { return n.parent, n.parent != "" },
		func(parent, child *node) { parent.children = append(parent.children, child) },
	)

	require.Len(t, roots, 2)
	assert.Equal(t, "a", roots[0].id)
	assert.Equal(t, "d", roots[1].id)

	require.Len(t, roots[0].children, 2)
	assert.Equal(t, "b", roots[0].children[0].id)
	assert.Equal(t, "e", roots[0].children[1].id)
	require.Len(t, roots[0].children[0].children, 1)
	assert.Equal(t, "c", roots[0].children[0].children[0].id)
}

func TestBuildTree_Empty(t *testing.T) {
	roots := BuildTree([]node(nil),
		func(n *node) string { return n.id },
		func(n *node) (string, bool) { return "", false },
		func(_, _ *node) {},
	)
	assert.NotNil(t, roots)
	assert.Empty(t, roots)
}

func productInput(sku string) ProductInput {
	return ProductInput{
		Name:        "Trail Runner",
		Description: "A shoe",
		Price:       domain.Dollars("89.99"),
		Stock:       10,
		SKU:         sku,
	}
}

func TestProducts_CreateAndUpdate(t *testing.T) {
	st := memory.NewStore()
	svc := NewProductService(st.Products(), st.Categories(), discard())
	ctx := context.Background()

	in := productInput("TR-1")
	in.Variants = []VariantInput{{Size: "42", Stock: 3, SKU: "TR-1-42"}}
	p, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, domain.ProductActive, p.Status)
	require.Len(t, p.Variants, 1)

	updated, err := svc.Update(ctx, p.ID, ProductPatch{
		Price:          patch.Some(domain.Dollars("79.99")),
		CompareAtPrice: patch.Some(domain.Dollars("89.99")),
	})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(domain.Dollars("79.99")))
	assert.Len(t, updated.Variants, 1, "variants kept when not supplied")

	updated, err = svc.Update(ctx, p.ID, ProductPatch{
		CompareAtPrice: patch.Null[domain.Money](),
		Variants:       patch.Some([]VariantInput{{Size: "43", SKU: "TR-1-43"}, {Size: "44", SKU: "TR-1-44"}}),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.CompareAtPrice)
	assert.Len(t, updated.Variants, 2)

	_, err = svc.Create(ctx, productInput("TR-1"))
	requireKind(t, err, apperr.KindConflict)
}

func TestProducts_Validation(t *testing.T) {
	st := memory.NewStore()
	svc := NewProductService(st.Products(), st.Categories(), discard())
	ctx := context.Background()

	in := productInput("")
	in.Name = "ab"
	in.Price = domain.Dollars("-1")
	_, err := svc.Create(ctx, in)
	requireKind(t, err, apperr.KindInvalidRequest)

	missing := "nope"
	in = productInput("X-1")
	in.CategoryID = &missing
	_, err = svc.Create(ctx, in)
	requireKind(t, err, apperr.KindNotFound)

	_, err = svc.Update(ctx, "missing", ProductPatch{})
	requireKind(t, err, apperr.KindNotFound)

	err = svc.Delete(ctx, "missing")
	requireKind(t, err, apperr.KindNotFound)
}

func TestProducts_ListDefaultsToActive(t *testing.T) {
	st := memory.NewStore()
	svc := NewProductService(st.Products(), st.Categories(), discard())
	ctx := context.Background()

	_, err := svc.Create(ctx, productInput("A-1"))
	require.NoError(t, err)
	draft := productInput("A-2")
	draft.Status = domain.ProductDraft
	_, err = svc.Create(ctx, draft)
	require.NoError(t, err)

	page, err := svc.List(ctx, store.ProductFilter{}, store.NewPage(1, 10, 10))
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "A-1", page.Products[0].SKU)
	assert.Equal(t, 1, page.Pagination.Total)

	page, err = svc.List(ctx, store.ProductFilter{Status: domain.ProductDraft}, store.NewPage(1, 10, 10))
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "A-2", page.Products[0].SKU)
}

func TestProducts_SearchAndRelated(t *testing.T) {
	st := memory.NewStore()
	cats := NewCategoryService(st.Categories(), st.Products(), discard())
	svc := NewProductService(st.Products(), st.Categories(), discard())
	ctx := context.Background()

	shoes, err := cats.Create(ctx, CategoryInput{Name: "Shoes"})
	require.NoError(t, err)

	var first *domain.Product
	for i, name := range []string{"Trail Runner", "Road Runner", "Hiking Boot", "Sandal", "Slipper", "Loafer"} {
		in := productInput(name)
		in.Name = name
		in.CategoryID = &shoes.ID
		p, err := svc.Create(ctx, in)
		require.NoError(t, err)
		if i == 0 {
			first = p
		}
	}

	_, err = svc.Search(ctx, "  ", 0)
	requireKind(t, err, apperr.KindInvalidRequest)

	hits, err := svc.Search(ctx, "runner", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	related, err := svc.Related(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, related, relatedLimit)
	for _, r := range related {
		assert.NotEqual(t, first.ID, r.ID)
	}

	_, err = svc.Related(ctx, "missing")
	requireKind(t, err, apperr.KindNotFound)
}

func TestCategories_CreateAndTree(t *testing.T) {
	st := memory.NewStore()
	svc := NewCategoryService(st.Categories(), st.Products(), discard())
	ctx := context.Background()

	root, err := svc.Create(ctx, CategoryInput{Name: "Running Shoes"})
	require.NoError(t, err)
	assert.Equal(t, "running-shoes", root.Slug)
	assert.Equal(t, 1, root.Level)
	assert.True(t, root.IsActive)

	child, err := svc.Create(ctx, CategoryInput{Name: "Trail", ParentID: &root.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, child.Level)

	inactive := false
	_, err = svc.Create(ctx, CategoryInput{Name: "Hidden", IsActive: &inactive})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CategoryInput{Name: "running shoes"})
	requireKind(t, err, apperr.KindConflict)

	missing := "nope"
	_, err = svc.Create(ctx, CategoryInput{Name: "Orphan", ParentID: &missing})
	requireKind(t, err, apperr.KindNotFound)

	tree, err := svc.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, root.ID, tree[0].ID)
	require.Len(t, tree[0].Subcategories, 1)
	assert.Equal(t, child.ID, tree[0].Subcategories[0].ID)

	got, err := svc.Get(ctx, root.ID)
	require.NoError(t, err)
	assert.Len(t, got.Subcategories, 1)
	assert.Empty(t, got.Products)
}

func TestCategories_Reparent(t *testing.T) {
	st := memory.NewStore()
	svc := NewCategoryService(st.Categories(), st.Products(), discard())
	ctx := context.Background()

	a, err := svc.Create(ctx, CategoryInput{Name: "A"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, CategoryInput{Name: "B", ParentID: &a.ID})
	require.NoError(t, err)
	c, err := svc.Create(ctx, CategoryInput{Name: "C", ParentID: &b.ID})
	require.NoError(t, err)

	_, err = svc.Update(ctx, a.ID, CategoryPatch{ParentID: patch.Some(a.ID)})
	requireKind(t, err, apperr.KindInvalidRequest)

	_, err = svc.Update(ctx, a.ID, CategoryPatch{ParentID: patch.Some(c.ID)})
	requireKind(t, err, apperr.KindInvalidRequest)

	moved, err := svc.Update(ctx, c.ID, CategoryPatch{ParentID: patch.Some(a.ID)})
	require.NoError(t, err)
	assert.Equal(t, 2, moved.Level)

	detached, err := svc.Update(ctx, c.ID, CategoryPatch{ParentID: patch.Null[string]()})
	require.NoError(t, err)
	assert.Nil(t, detached.ParentID)
	assert.Equal(t, 1, detached.Level)

	renamed, err := svc.Update(ctx, b.ID, CategoryPatch{Name: patch.Some("Bee Keeping")})
	require.NoError(t, err)
	assert.Equal(t, "bee-keeping", renamed.Slug)

	_, err = svc.Update(ctx, c.ID, CategoryPatch{Name: patch.Some("bee keeping")})
	requireKind(t, err, apperr.KindConflict)
}

func TestCategories_DeleteGuards(t *testing.T) {
	st := memory.NewStore()
	svc := NewCategoryService(st.Categories(), st.Products(), discard())
	products := NewProductService(st.Products(), st.Categories(), discard())
	ctx := context.Background()

	parent, err := svc.Create(ctx, CategoryInput{Name: "Parent"})
	require.NoError(t, err)
	child, err := svc.Create(ctx, CategoryInput{Name: "Child", ParentID: &parent.ID})
	require.NoError(t, err)

	err = svc.Delete(ctx, parent.ID)
	requireKind(t, err, apperr.KindPreconditionFailed)

	in := productInput("C-1")
	in.CategoryID = &child.ID
	p, err := products.Create(ctx, in)
	require.NoError(t, err)

	err = svc.Delete(ctx, child.ID)
	requireKind(t, err, apperr.KindPreconditionFailed)

	require.NoError(t, products.Delete(ctx, p.ID))
	require.NoError(t, svc.Delete(ctx, child.ID))
	require.NoError(t, svc.Delete(ctx, parent.ID))

	err = svc.Delete(ctx, parent.ID)
	requireKind(t, err, apperr.KindNotFound)
}
