package config

// DefaultFile returns the built-in site list used when no configuration file
// is found. It covers four Indian fashion storefronts with their known
// product and listing URL shapes.
func DefaultFile() *File {
	return &File{
		Defaults: Defaults{
			Headers: map[string]string{
				"Accept-Language": "en-US,en;q=0.9",
				"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
				"Referer":         "https://www.google.com/",
			},
			IgnorePatterns: []string{
				"/account/*",
				"/cart*",
				"/checkout*",
				"/login*",
			},
		},
		Sites: []SiteConfig{
			{
				URL:   "https://www.virgio.com/",
				Seeds: []string{"https://www.virgio.com/"},
				Patterns: []PatternConfig{
					{Kind: "product", Match: `/products/[^/]+$`},
				},
			},
			{
				URL: "https://www.tatacliq.com/",
				Seeds: []string{
					"https://www.tatacliq.com/mens-clothing/c-msh11/page-1?q=%3Arelevance%3Acategory%3AMSH11%3AinStockFlag%3Atrue",
					"https://www.tatacliq.com/search?text=Ethnic%20Wear%20-%20Shop%20all%20:relevance:list:listId_ea75fe58ecdf4058898f36e03c8ab3d3&icid2=catd:nav:regu:wnav:m1311:mulb:bst:01:R1",
					"https://www.tatacliq.com/kids/c-msh21/page-1?q=%3Arelevance%3Acategory%3AMSH21%3AinStockFlag%3Atrue&icid2=catd:nav:regu:knav:m21:mulb:bst:01:R1",
				},
				Patterns: []PatternConfig{
					{Kind: "product", Match: `/[a-z0-9\-]+/p-mp\d+`},
					{Kind: "product", Match: `/[a-z0-9\-]+/p-[a-z0-9]+`},
					{Kind: "category", Match: `/mens-clothing/c-msh11/page-\d+`},
				},
			},
			{
				URL:   "https://www.nykaafashion.com/",
				Seeds: []string{"https://www.nykaafashion.com/women/westernwear/c/3"},
				Patterns: []PatternConfig{
					{Kind: "product", Match: `/[a-z0-9\-]+/p/\d+`},
					{Kind: "product", Match: `/p/|/product/`},
				},
			},
			{
				URL: "https://www.westside.com/",
				Seeds: []string{
					"https://www.westside.com/collections/women",
					"https://www.westside.com/collections/men",
					"https://www.westside.com/collections/kids",
					"https://www.westside.com/collections/home-kitchen-serve-ware",
				},
				Patterns: []PatternConfig{
					{Kind: "product", Match: `/products/[^/?]+(\?.*)?$`},
					{Kind: "product", Match: `/store/product/.*/prod\w+`},
					{Kind: "category", Match: `/store/category/`},
				},
			},
		},
	}
}
