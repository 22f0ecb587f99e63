package infrastructure

import (
	"memberflow/internal/service/membership/domain"
)

// ToDomainCard 将数据库模型转换为领域模型
func ToDomainCard(model *MembershipCardModel) *domain.Card {
	if model == nil {
		return nil
	}
	return &domain.Card{
		ID:         model.ID,
		UserID:     model.UserID,
		MerchantID: model.MerchantID,
		Points:     model.Points,
		Tier:       domain.Tier(model.Tier),
		Version:    model.Version,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

// FromDomainCard 将领域模型转换为数据库模型（用于插入）
func FromDomainCard(card *domain.Card) *MembershipCardModel {
	if card == nil {
		return nil
	}
	return &MembershipCardModel{
		ID:         card.ID,
		UserID:     card.UserID,
		MerchantID: card.MerchantID,
		Points:     card.Points,
		Tier:       string(card.Tier),
		Version:    card.Version,
		CreatedAt:  card.CreatedAt,
		UpdatedAt:  card.UpdatedAt,
	}
}

// ToDomainMerchant 将数据库模型转换为领域模型
func ToDomainMerchant(model *MerchantModel) *domain.Merchant {
	if model == nil {
		return nil
	}
	return &domain.Merchant{
		ID:          model.ID,
		Name:        model.Name,
		Slug:        model.Slug,
		AccentColor: model.AccentColor,
		Active:      model.Active,
		CreatedAt:   model.CreatedAt,
	}
}
