package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	buildingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Building",
		Fields: graphql.Fields{
			"id":                &graphql.Field{Type: graphql.String},
			"egid":              &graphql.Field{Type: graphql.String},
			"address":           &graphql.Field{Type: graphql.String},
			"municipality":      &graphql.Field{Type: graphql.String},
			"canton":            &graphql.Field{Type: graphql.String},
			"building_class":    &graphql.Field{Type: graphql.Int},
			"status":            &graphql.Field{Type: graphql.Int},
			"construction_year": &graphql.Field{Type: graphql.Int},
			"location":          &graphql.Field{Type: geoPointType},
			"distance":          &graphql.Field{Type: graphql.Float},
		},
	})

	lookupRoofType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LookupRoof",
		Fields: graphql.Fields{
			"area_ratio_original": &graphql.Field{Type: graphql.Float},
			"flaeche":             &graphql.Field{Type: graphql.Float},
			"stromertrag":         &graphql.Field{Type: graphql.Float},
		},
	})

	lookupResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LookupResult",
		Fields: graphql.Fields{
			"egid":              &graphql.Field{Type: graphql.String},
			"data":              &graphql.Field{Type: graphql.NewList(lookupRoofType)},
			"total_flaeche":     &graphql.Field{Type: graphql.Float},
			"total_stromertrag": &graphql.Field{Type: graphql.Float},
			"processing_time_s": &graphql.Field{Type: graphql.Float},
		},
	})

	potentialType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BuildingPotential",
		Fields: graphql.Fields{
			"egid":              &graphql.Field{Type: graphql.String},
			"roof_count":        &graphql.Field{Type: graphql.Int},
			"total_flaeche":     &graphql.Field{Type: graphql.Float},
			"total_stromertrag": &graphql.Field{Type: graphql.Float},
		},
	})

	datasetType := graphql.NewObject(graphql.ObjectConfig{
		Name: "DatasetVersion",
		Fields: graphql.Fields{
			"slug":      &graphql.Field{Type: graphql.String},
			"version":   &graphql.Field{Type: graphql.String},
			"row_count": &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"lookup": &graphql.Field{
				Type:        lookupResultType,
				Description: "Roof segments and solar totals for a building",
				Args: graphql.FieldConfigArgument{
					"egid": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					egid := p.Args["egid"].(string)
					return deps.Lookups.Lookup(p.Context, egid)
				},
			},
			"building": &graphql.Field{
				Type:        buildingType,
				Description: "Get a building register entry by EGID",
				Args: graphql.FieldConfigArgument{
					"egid": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					egid := p.Args["egid"].(string)
					return deps.Buildings.GetByEGID(p.Context, egid)
				},
			},
			"buildingsNearby": &graphql.Field{
				Type:        graphql.NewList(buildingType),
				Description: "Find buildings near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 500.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					return deps.Buildings.FindNearby(p.Context, lat, lon, radius, limit)
				},
			},
			"searchBuildings": &graphql.Field{
				Type:        graphql.NewList(buildingType),
				Description: "Search buildings by address (fuzzy matching)",
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q := p.Args["query"].(string)
					limit := p.Args["limit"].(int)
					return deps.Buildings.Search(p.Context, q, limit)
				},
			},
			"topPotential": &graphql.Field{
				Type:        graphql.NewList(potentialType),
				Description: "Buildings with the highest solar yield",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit := p.Args["limit"].(int)
					return deps.Potentials.Top(p.Context, limit)
				},
			},
			"datasets": &graphql.Field{
				Type:        graphql.NewList(datasetType),
				Description: "Loaded source dataset versions",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Datasets.List(p.Context)
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
