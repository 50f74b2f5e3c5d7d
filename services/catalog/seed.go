// Copyright 2026 dynrest.tech - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dynrest.tech
//

package main

import (
	"fmt"

	"github.com/gorilla/mux"

	"github.com/dynrest-tech/dynrest/core/client"
)

// seed populates the databases with sample data through the regular REST
// routes, so that validation and foreign key checks apply to the sample data
// as well.
func seed(router *mux.Router) error {
	cl := client.NewWithRouter(router).WithIdentity("seed")

	categories := []map[string]interface{}{
		{"name": "Electronics", "description": "Phones, computers and accessories"},
		{"name": "Clothing", "description": "Apparel for all seasons"},
		{"name": "Food", "description": "Groceries and specialties"},
		{"name": "Books", "description": "Fiction and non-fiction"},
		{"name": "Home & Decor", "description": "Furniture and decoration"},
	}
	categoryIDs := map[string]string{}
	for _, category := range categories {
		var created map[string]interface{}
		if _, err := cl.RawPost("/db1/category/", category, &created); err != nil {
			return fmt.Errorf("cannot create category: %s", err)
		}
		categoryIDs[category["name"].(string)] = created["id"].(string)
	}

	products := []map[string]interface{}{
		{"name": "Laptop 14\"", "description": "Portable workstation", "price": "1199.90", "category": categoryIDs["Electronics"]},
		{"name": "Noise-cancelling headphones", "description": "Over-ear, wireless", "price": "249.00", "category": categoryIDs["Electronics"]},
		{"name": "Wool sweater", "description": "Winter collection", "price": "59.90", "category": categoryIDs["Clothing"]},
		{"name": "Olive oil 1l", "description": "Extra virgin", "price": "12.50", "category": categoryIDs["Food"]},
		{"name": "Systems programming handbook", "description": "Second edition", "price": "42.00", "category": categoryIDs["Books"]},
		{"name": "Floor lamp", "description": "Adjustable brightness", "price": "89.90", "category": categoryIDs["Home & Decor"]},
	}
	for _, product := range products {
		if _, err := cl.RawPost("/db1/product/", product, nil); err != nil {
			return fmt.Errorf("cannot create product: %s", err)
		}
	}

	species := []map[string]interface{}{
		{"name": "Dog", "description": "Domestic dog"},
		{"name": "Cat", "description": "Domestic cat"},
		{"name": "Bird", "description": "Companion birds"},
	}
	speciesIDs := map[string]string{}
	for _, sp := range species {
		var created map[string]interface{}
		if _, err := cl.RawPost("/db2/species/", sp, &created); err != nil {
			return fmt.Errorf("cannot create species: %s", err)
		}
		speciesIDs[sp["name"].(string)] = created["id"].(string)
	}

	breeds := []map[string]interface{}{
		{"name": "Labrador", "species": speciesIDs["Dog"], "description": "Friendly retriever"},
		{"name": "Beagle", "species": speciesIDs["Dog"], "description": "Small hound"},
		{"name": "Siamese", "species": speciesIDs["Cat"], "description": "Vocal and social"},
		{"name": "Canary", "species": speciesIDs["Bird"], "description": "Songbird"},
	}
	breedIDs := map[string]string{}
	for _, breed := range breeds {
		var created map[string]interface{}
		if _, err := cl.RawPost("/db2/breed/", breed, &created); err != nil {
			return fmt.Errorf("cannot create breed: %s", err)
		}
		breedIDs[breed["name"].(string)] = created["id"].(string)
	}

	animals := []map[string]interface{}{
		{"name": "Rex", "age": 4, "breed": breedIDs["Labrador"], "description": "Loves water"},
		{"name": "Mia", "age": 2, "breed": breedIDs["Siamese"], "description": "Indoor cat"},
		{"name": "Piu", "age": 1, "breed": breedIDs["Canary"], "description": "Morning singer"},
		{"name": "Luna", "age": 7, "breed": nil, "description": "Mixed breed rescue"},
	}
	for _, animal := range animals {
		if _, err := cl.RawPost("/db2/animal/", animal, nil); err != nil {
			return fmt.Errorf("cannot create animal: %s", err)
		}
	}

	genres := []map[string]interface{}{
		{"name": "Action", "description": "High energy"},
		{"name": "Drama", "description": "Character driven"},
		{"name": "Science Fiction", "description": "Speculative futures"},
	}
	genreIDs := map[string]string{}
	for _, genre := range genres {
		var created map[string]interface{}
		if _, err := cl.RawPost("/db3/genre/", genre, &created); err != nil {
			return fmt.Errorf("cannot create genre: %s", err)
		}
		genreIDs[genre["name"].(string)] = created["id"].(string)
	}

	movies := []map[string]interface{}{
		{"title": "Steel Horizon", "description": "A race against time", "release_date": "2019-06-14", "genre": genreIDs["Action"]},
		{"title": "The Quiet Year", "description": "A family drama", "release_date": "2003-11-02", "genre": genreIDs["Drama"]},
		{"title": "Orbital Dawn", "description": "First contact", "release_date": "2021-03-26", "genre": genreIDs["Science Fiction"]},
	}
	for _, movie := range movies {
		if _, err := cl.RawPost("/db3/movie/", movie, nil); err != nil {
			return fmt.Errorf("cannot create movie: %s", err)
		}
	}

	admin := map[string]interface{}{
		"username": "admin",
		"password": hashPassword("admin"),
		"email":    "admin@example.com",
	}
	if _, err := cl.RawPost("/default/user/", admin, nil); err != nil {
		return fmt.Errorf("cannot create admin user: %s", err)
	}

	return nil
}
