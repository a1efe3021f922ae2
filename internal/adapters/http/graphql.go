package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL read model over stored sweep results.
// Sweeps themselves stay REST-only: a query language in front of an endpoint
// that spends money per call invites expensive accidents.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	latLngType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LatLng",
		Fields: graphql.Fields{
			"latitude":  &graphql.Field{Type: graphql.Float},
			"longitude": &graphql.Field{Type: graphql.Float},
		},
	})

	regionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Region",
		Fields: graphql.Fields{
			"north": &graphql.Field{Type: graphql.Float},
			"south": &graphql.Field{Type: graphql.Float},
			"west":  &graphql.Field{Type: graphql.Float},
			"east":  &graphql.Field{Type: graphql.Float},
		},
	})

	filterType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SearchFilter",
		Fields: graphql.Fields{
			"includedTypes":   &graphql.Field{Type: graphql.NewList(graphql.String)},
			"minRating":       &graphql.Field{Type: graphql.Float},
			"maxRating":       &graphql.Field{Type: graphql.Float},
			"operatingStatus": &graphql.Field{Type: graphql.NewList(graphql.String)},
		},
	})

	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SweepStats",
		Fields: graphql.Fields{
			"regionsVisited": &graphql.Field{Type: graphql.Int},
			"splits":         &graphql.Field{Type: graphql.Int},
			"countCalls":     &graphql.Field{Type: graphql.Int},
			"listingCalls":   &graphql.Field{Type: graphql.Int},
			"refsDiscovered": &graphql.Field{Type: graphql.Int},
			"droppedRegions": &graphql.Field{Type: graphql.Int},
			"truncated":      &graphql.Field{Type: graphql.Boolean},
			"elapsedMs":      &graphql.Field{Type: graphql.Int},
		},
	})

	placeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Place",
		Fields: graphql.Fields{
			"id":                     &graphql.Field{Type: graphql.String},
			"name":                   &graphql.Field{Type: graphql.String},
			"resourceName":           &graphql.Field{Type: graphql.String},
			"googleMapsUri":          &graphql.Field{Type: graphql.String},
			"primaryType":            &graphql.Field{Type: graphql.String},
			"primaryTypeDisplayName": &graphql.Field{Type: graphql.String},
			"types":                  &graphql.Field{Type: graphql.NewList(graphql.String)},
			"rating":                 &graphql.Field{Type: graphql.Float},
			"userRatingCount":        &graphql.Field{Type: graphql.Int},
			"priceLevel":             &graphql.Field{Type: graphql.String},
			"gps_coordinates":        &graphql.Field{Type: latLngType},
		},
	})

	snapshotType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Snapshot",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"slug":         &graphql.Field{Type: graphql.String},
			"city":         &graphql.Field{Type: graphql.String},
			"region":       &graphql.Field{Type: regionType},
			"filter":       &graphql.Field{Type: filterType},
			"generated_at": &graphql.Field{Type: graphql.DateTime},
			"total_places": &graphql.Field{Type: graphql.Int},
			"stats":        &graphql.Field{Type: statsType},
			"places":       &graphql.Field{Type: graphql.NewList(placeType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"snapshot": &graphql.Field{
				Type:        snapshotType,
				Description: "Latest stored snapshot for a city slug",
				Args: graphql.FieldConfigArgument{
					"slug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					slug := p.Args["slug"].(string)
					snap, err := deps.Snapshots.GetBySlug(p.Context, slug)
					if err != nil {
						return nil, err
					}
					if snap == nil {
						return nil, nil
					}
					return snap, nil
				},
			},
			"snapshots": &graphql.Field{
				Type:        graphql.NewList(snapshotType),
				Description: "Stored snapshots, newest first (places not loaded)",
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit := p.Args["limit"].(int)
					offset := p.Args["offset"].(int)
					snaps, _, err := deps.Snapshots.List(p.Context, limit, offset)
					return snaps, err
				},
			},
			"placesNearby": &graphql.Field{
				Type:        graphql.NewList(placeType),
				Description: "Stored places near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 2000.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					return deps.Snapshots.PlacesNearby(p.Context, lat, lon, radius, limit)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
