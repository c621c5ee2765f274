package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"invoiceflow/internal/apperr"
	"invoiceflow/internal/models"
)

// ClientService is plain CRUD over clients with two domain guards:
// unique email, and no deletion while invoices reference the client.
type ClientService struct {
	db *gorm.DB
}

func NewClientService(db *gorm.DB) *ClientService {
	return &ClientService{db: db}
}

// ClientCreateInput carries a new client.
type ClientCreateInput struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	PostalAddr string `json:"post_addr"`
}

func (s *ClientService) Create(in ClientCreateInput) (*models.Client, error) {
	if in.Name == "" || in.Email == "" {
		return nil, apperr.Validation("name and email are required", map[string]string{
			"name": "required", "email": "required",
		})
	}

	var existing int64
	if err := s.db.Model(&models.Client{}).Where("email = ?", in.Email).Count(&existing).Error; err != nil {
		return nil, apperr.Transaction("check email", err)
	}
	if existing > 0 {
		return nil, duplicateEmailErr(in.Email)
	}

	client := models.Client{
		Name:       in.Name,
		Address:    in.Address,
		Email:      in.Email,
		Phone:      in.Phone,
		PostalAddr: in.PostalAddr,
	}
	if err := s.db.Create(&client).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, duplicateEmailErr(in.Email)
		}
		return nil, apperr.Transaction("insert client", err)
	}
	return &client, nil
}

func (s *ClientService) Get(id uint) (*models.Client, error) {
	var client models.Client
	if err := s.db.First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("client", id)
		}
		return nil, apperr.Transaction("load client", err)
	}
	return &client, nil
}

// ClientUpdateInput holds partial client changes.
type ClientUpdateInput struct {
	Name       *string `json:"name"`
	Address    *string `json:"address"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	PostalAddr *string `json:"post_addr"`
}

func (s *ClientService) Update(id uint, in ClientUpdateInput) (*models.Client, error) {
	var client models.Client
	if err := s.db.First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("client", id)
		}
		return nil, apperr.Transaction("load client", err)
	}

	updates := map[string]any{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Address != nil {
		updates["address"] = *in.Address
	}
	if in.Email != nil && *in.Email != client.Email {
		var existing int64
		if err := s.db.Model(&models.Client{}).Where("email = ? AND id <> ?", *in.Email, id).Count(&existing).Error; err != nil {
			return nil, apperr.Transaction("check email", err)
		}
		if existing > 0 {
			return nil, duplicateEmailErr(*in.Email)
		}
		updates["email"] = *in.Email
	}
	if in.Phone != nil {
		updates["phone"] = *in.Phone
	}
	if in.PostalAddr != nil {
		updates["postal_addr"] = *in.PostalAddr
	}
	if len(updates) == 0 {
		return &client, nil
	}

	if err := s.db.Model(&client).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, duplicateEmailErr(fmt.Sprint(updates["email"]))
		}
		return nil, apperr.Transaction("update client", err)
	}
	return &client, nil
}

// Delete removes a client unless invoices still reference it.
func (s *ClientService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var client models.Client
		if err := tx.First(&client, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("client", id)
			}
			return apperr.Transaction("load client", err)
		}
		var invoices int64
		if err := tx.Model(&models.Invoice{}).Where("client_id = ?", id).Count(&invoices).Error; err != nil {
			return apperr.Transaction("count invoices", err)
		}
		if invoices > 0 {
			return apperr.Conflict("CLIENT_HAS_INVOICES",
				fmt.Sprintf("cannot delete client %d: %d invoice(s) reference it", id, invoices))
		}
		if err := tx.Delete(&client).Error; err != nil {
			return apperr.Transaction("delete client", err)
		}
		return nil
	})
}

// List returns a page of clients, newest first.
func (s *ClientService) List(page, limit int) ([]models.Client, Pagination, error) {
	if err := checkPageLimit(page, limit); err != nil {
		return nil, Pagination{}, err
	}
	var total int64
	if err := s.db.Model(&models.Client{}).Count(&total).Error; err != nil {
		return nil, Pagination{}, apperr.Transaction("count clients", err)
	}
	var clients []models.Client
	err := s.db.Order("id desc").Limit(limit).Offset((page - 1) * limit).Find(&clients).Error
	if err != nil {
		return nil, Pagination{}, apperr.Transaction("list clients", err)
	}
	return clients, paginationFor(page, limit, total), nil
}

func duplicateEmailErr(email string) *apperr.Error {
	return apperr.Conflict("DUPLICATE_EMAIL", "a client with email "+email+" already exists")
}
