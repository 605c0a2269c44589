package recipe

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// FileName is the recipes file inside the project directory.
const FileName = "recipes.yaml"

type file struct {
	Recipes []Recipe `yaml:"recipes"`
}

// Load returns the built-in recipes merged with those in path. A recipe
// from the file replaces the built-in of the same name; new ones are
// appended in file order. A missing file yields the built-ins.
func Load(path string) ([]Recipe, error) {
	recipes := BuiltinRecipes()
	if path == "" {
		return recipes, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return recipes, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read recipes: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	index := make(map[string]int, len(recipes))
	for i, r := range recipes {
		index[r.Name] = i
	}
	for _, r := range f.Recipes {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if i, ok := index[r.Name]; ok {
			recipes[i] = r
			continue
		}
		index[r.Name] = len(recipes)
		recipes = append(recipes, r)
	}
	return recipes, nil
}

// Find returns the recipe called name.
func Find(recipes []Recipe, name string) (Recipe, bool) {
	for _, r := range recipes {
		if r.Name == name {
			return r, true
		}
	}
	return Recipe{}, false
}
