package mappers

import (
	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/LavaJover/mmk-rates-service/internal/infrastructure/postgres/models"
)

func ToGORMRate(doc domain.RateDocument) models.RateModel {
	return models.RateModel{
		ID:               doc.ID,
		Currency:         doc.Currency,
		Rate:             doc.Rate,
		BuyRate:          doc.BuyRate,
		SellRate:         doc.SellRate,
		Timestamp:        doc.Timestamp,
		Source:           doc.Source,
		SourceURL:        doc.SourceURL,
		LastUpdated:      doc.LastUpdated,
		CollectorVersion: doc.Metadata.CollectorVersion,
		CreatedAt:        doc.CreatedAt,
	}
}

func ToDomainRate(model models.RateModel) domain.RateDocument {
	return domain.RateDocument{
		ID: model.ID,
		ExchangeRate: domain.ExchangeRate{
			Currency:    model.Currency,
			Rate:        model.Rate,
			BuyRate:     model.BuyRate,
			SellRate:    model.SellRate,
			Timestamp:   model.Timestamp,
			Source:      model.Source,
			SourceURL:   model.SourceURL,
			LastUpdated: model.LastUpdated,
		},
		Metadata: domain.RateMetadata{
			SourceURL:        model.SourceURL,
			CollectorVersion: model.CollectorVersion,
		},
		CreatedAt: model.CreatedAt,
	}
}

func ToGORMLatestRate(doc domain.LatestRateDocument) models.LatestRateModel {
	return models.LatestRateModel{
		ID:          doc.ID,
		Currency:    doc.Currency,
		Rate:        doc.Rate,
		BuyRate:     doc.BuyRate,
		SellRate:    doc.SellRate,
		Timestamp:   doc.Timestamp,
		Source:      doc.Source,
		SourceURL:   doc.SourceURL,
		LastUpdated: doc.LastUpdated,
		UpdatedAt:   doc.UpdatedAt,
	}
}

func ToDomainLatestRate(model models.LatestRateModel) domain.LatestRateDocument {
	return domain.LatestRateDocument{
		ID: model.ID,
		ExchangeRate: domain.ExchangeRate{
			Currency:    model.Currency,
			Rate:        model.Rate,
			BuyRate:     model.BuyRate,
			SellRate:    model.SellRate,
			Timestamp:   model.Timestamp,
			Source:      model.Source,
			SourceURL:   model.SourceURL,
			LastUpdated: model.LastUpdated,
		},
		UpdatedAt: model.UpdatedAt,
	}
}

func ToDomainCollectionStatus(model models.CollectionStatusModel) domain.CollectionStatus {
	return domain.CollectionStatus{
		Source:              model.Source,
		LastRun:             model.LastRun,
		LastSuccess:         model.LastSuccess,
		ConsecutiveFailures: model.ConsecutiveFailures,
		LastError:           model.LastError,
		IsActive:            model.IsActive,
	}
}
