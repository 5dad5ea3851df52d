package app

import (
	"context"

	"plantmart/internal/models"
	"plantmart/internal/repositories"

	"github.com/sirupsen/logrus"
)

// starter catalog, inserted only into an empty products table
var seedCatalog = []models.Product{
	{Name: "Tomates Bio Premium", Seller: "Marie Dubois", Location: "Provence, France", Price: "4.50€/kg", Rating: 4.8, Reviews: 124, Image: "/tomatoes-organic-fresh-red-ripe.jpg", Category: "Légumes", Organic: true},
	{Name: "Miel de Lavande Artisanal", Seller: "Sophie Martin", Location: "Drôme, France", Price: "12.00€/pot", Rating: 4.9, Reviews: 89, Image: "/lavender-honey-jar-artisanal.jpg", Category: "Produits transformés", Organic: true},
	{Name: "Salade Verte Fraîche", Seller: "Fatima El Mansouri", Location: "Casablanca, Maroc", Price: "2.20€/botte", Rating: 4.7, Reviews: 156, Image: "/fresh-green-lettuce-salad.jpg", Category: "Légumes", Organic: true},
	{Name: "Huile d'Olive Extra Vierge", Seller: "Isabella Rossi", Location: "Toscane, Italie", Price: "18.50€/bouteille", Rating: 4.9, Reviews: 203, Image: "/extra-virgin-olive-oil-bottle.jpg", Category: "Huiles", Organic: true},
	{Name: "Herbes Aromatiques Séchées", Seller: "Amina Hassan", Location: "Fès, Maroc", Price: "8.00€/sachet", Rating: 4.6, Reviews: 78, Image: "/dried-aromatic-herbs-mix.jpg", Category: "Épices", Organic: true},
	{Name: "Fromage de Chèvre Fermier", Seller: "Claire Lefebvre", Location: "Loire, France", Price: "15.00€/pièce", Rating: 4.8, Reviews: 92, Image: "/artisanal-goat-cheese-farm.jpg", Category: "Fromages", Organic: true},
}

// seedProducts populates an empty product repository with the starter catalog.
func seedProducts(ctx context.Context, repo repositories.ProductRepository, log logrus.FieldLogger) error {
	existing, err := repo.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, product := range seedCatalog {
		saved, err := repo.Create(ctx, product)
		if err != nil {
			log.WithField("name", product.Name).WithError(err).Warn("error seeding product")
			continue
		}
		log.WithFields(logrus.Fields{"name": saved.Name, "product_id": saved.ID}).Debug("seeded product")
	}
	return nil
}
