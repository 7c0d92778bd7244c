// Package graph exposes the wishlist API as a GraphQL query/mutation graph.
// The schema is built from static field descriptors so the external schema
// exporter can introspect it without any runtime reflection over live objects.
package graph

import (
	"log/slog"

	"github.com/graphql-go/graphql"

	"github.com/MiSArch/wishlist/internal/domain"
	"github.com/MiSArch/wishlist/internal/service"
	"github.com/MiSArch/wishlist/pkg/pagination"
	pkgvalidator "github.com/MiSArch/wishlist/pkg/validator"
)

const (
	defaultPage    = 1
	defaultPerPage = 20
)

type resolver struct {
	svc    *service.WishlistService
	logger *slog.Logger
}

// NewSchema builds the wishlist schema over the given service. Field renames
// and removals here are breaking changes for every consumer of the published
// schema document and require coordinated versioning.
func NewSchema(svc *service.WishlistService, logger *slog.Logger) (graphql.Schema, error) {
	r := &resolver{svc: svc, logger: logger}

	itemType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "WishlistItem",
		Description: "A product reference inside a wishlist.",
		Fields: graphql.Fields{
			"productId": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(domain.Item).ProductID, nil
				},
			},
			"variantId": &graphql.Field{
				Type: graphql.ID,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if v := p.Source.(domain.Item).VariantID; v != "" {
						return v, nil
					}
					return nil, nil
				},
			},
			"quantity": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(domain.Item).Quantity, nil
				},
			},
			"addedAt": &graphql.Field{
				Type: graphql.NewNonNull(graphql.DateTime),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(domain.Item).AddedAt, nil
				},
			},
		},
	})

	wishlistType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Wishlist",
		Description: "A customer's wishlist with its ordered items.",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*domain.Wishlist).ID, nil
				},
			},
			"customerId": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*domain.Wishlist).CustomerID, nil
				},
			},
			"name": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*domain.Wishlist).Name, nil
				},
			},
			"items": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(itemType))),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*domain.Wishlist).Items, nil
				},
			},
			"version": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*domain.Wishlist).Version, nil
				},
			},
			"createdAt": &graphql.Field{
				Type: graphql.NewNonNull(graphql.DateTime),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*domain.Wishlist).CreatedAt, nil
				},
			},
			"updatedAt": &graphql.Field{
				Type: graphql.NewNonNull(graphql.DateTime),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*domain.Wishlist).UpdatedAt, nil
				},
			},
		},
	})

	connectionType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "WishlistConnection",
		Description: "A page of wishlists belonging to the requesting customer.",
		Fields: graphql.Fields{
			"nodes": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(wishlistType))),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(pagination.Result[*domain.Wishlist]).Data, nil
				},
			},
			"totalCount": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(pagination.Result[*domain.Wishlist]).TotalCount, nil
				},
			},
			"hasNextPage": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(pagination.Result[*domain.Wishlist]).HasNext, nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"wishlist": &graphql.Field{
				Type:        wishlistType,
				Description: "A single wishlist owned by the requesting customer.",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.wishlist,
			},
			"wishlists": &graphql.Field{
				Type:        graphql.NewNonNull(connectionType),
				Description: "The requesting customer's wishlists, newest first.",
				Args: graphql.FieldConfigArgument{
					"page":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaultPage},
					"perPage": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaultPerPage},
				},
				Resolve: r.wishlists,
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createWishlist": &graphql.Field{
				Type: graphql.NewNonNull(wishlistType),
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.createWishlist,
			},
			"addWishlistItem": &graphql.Field{
				Type: graphql.NewNonNull(wishlistType),
				Args: graphql.FieldConfigArgument{
					"wishlistId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"productId":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"variantId":  &graphql.ArgumentConfig{Type: graphql.ID},
					"quantity":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: r.addWishlistItem,
			},
			"removeWishlistItem": &graphql.Field{
				Type: graphql.NewNonNull(wishlistType),
				Args: graphql.FieldConfigArgument{
					"wishlistId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"productId":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"variantId":  &graphql.ArgumentConfig{Type: graphql.ID},
				},
				Resolve: r.removeWishlistItem,
			},
			"changeWishlistItemQuantity": &graphql.Field{
				Type: graphql.NewNonNull(wishlistType),
				Args: graphql.FieldConfigArgument{
					"wishlistId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"productId":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"variantId":  &graphql.ArgumentConfig{Type: graphql.ID},
					"quantity":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: r.changeWishlistItemQuantity,
			},
			"deleteWishlist": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.deleteWishlist,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// --- resolvers ---

func (r *resolver) wishlist(p graphql.ResolveParams) (any, error) {
	customerID, err := r.customerID(p)
	if err != nil {
		return nil, err
	}
	w, err := r.svc.Get(p.Context, customerID, stringArg(p, "id"))
	if err != nil {
		return nil, r.wrap(p, err)
	}
	return w, nil
}

func (r *resolver) wishlists(p graphql.ResolveParams) (any, error) {
	customerID, err := r.customerID(p)
	if err != nil {
		return nil, err
	}
	params := pagination.FromArgs(intArg(p, "page", defaultPage), intArg(p, "perPage", defaultPerPage))
	result, err := r.svc.List(p.Context, customerID, params)
	if err != nil {
		return nil, r.wrap(p, err)
	}
	return result, nil
}

func (r *resolver) createWishlist(p graphql.ResolveParams) (any, error) {
	customerID, err := r.customerID(p)
	if err != nil {
		return nil, err
	}
	input := service.CreateInput{Name: stringArg(p, "name")}
	if err := pkgvalidator.Validate(input); err != nil {
		return nil, r.wrap(p, err)
	}
	w, err := r.svc.Create(p.Context, customerID, input.Name)
	if err != nil {
		return nil, r.wrap(p, err)
	}
	return w, nil
}

func (r *resolver) addWishlistItem(p graphql.ResolveParams) (any, error) {
	customerID, err := r.customerID(p)
	if err != nil {
		return nil, err
	}
	input := service.AddItemInput{
		ProductID: stringArg(p, "productId"),
		VariantID: stringArg(p, "variantId"),
		Quantity:  intArg(p, "quantity", 0),
	}
	if err := pkgvalidator.Validate(input); err != nil {
		return nil, r.wrap(p, err)
	}
	w, err := r.svc.AddItem(p.Context, customerID, stringArg(p, "wishlistId"), input)
	if err != nil {
		return nil, r.wrap(p, err)
	}
	return w, nil
}

func (r *resolver) removeWishlistItem(p graphql.ResolveParams) (any, error) {
	customerID, err := r.customerID(p)
	if err != nil {
		return nil, err
	}
	w, err := r.svc.RemoveItem(p.Context, customerID,
		stringArg(p, "wishlistId"), stringArg(p, "productId"), stringArg(p, "variantId"))
	if err != nil {
		return nil, r.wrap(p, err)
	}
	return w, nil
}

func (r *resolver) changeWishlistItemQuantity(p graphql.ResolveParams) (any, error) {
	customerID, err := r.customerID(p)
	if err != nil {
		return nil, err
	}
	w, err := r.svc.ChangeQuantity(p.Context, customerID,
		stringArg(p, "wishlistId"), stringArg(p, "productId"), stringArg(p, "variantId"),
		intArg(p, "quantity", 0))
	if err != nil {
		return nil, r.wrap(p, err)
	}
	return w, nil
}

func (r *resolver) deleteWishlist(p graphql.ResolveParams) (any, error) {
	customerID, err := r.customerID(p)
	if err != nil {
		return nil, err
	}
	if err := r.svc.Delete(p.Context, customerID, stringArg(p, "id")); err != nil {
		return nil, r.wrap(p, err)
	}
	return true, nil
}

// --- argument helpers ---

func stringArg(p graphql.ResolveParams, name string) string {
	if v, ok := p.Args[name].(string); ok {
		return v
	}
	return ""
}

func intArg(p graphql.ResolveParams, name string, fallback int) int {
	if v, ok := p.Args[name].(int); ok {
		return v
	}
	return fallback
}
