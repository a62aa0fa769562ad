package favorites

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"atelier/internal/config"
	models "atelier/internal/domain/models/favorites"
	favSvc "atelier/internal/domain/services/favorites"
)

func validateAddFolder(req *favSvc.AddFolderRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.OwnerID, validation.Required),
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxNodeNameLength),
		),
	)
}

func validateAddReference(req *favSvc.AddReferenceRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.OwnerID, validation.Required),
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxNodeNameLength),
		),
		validation.Field(&req.Target, validation.Required),
	)
}

// validateImportItem checks one batch item in isolation. Batch-level rules
// (duplicate temp ids, batch size) live in the resolver.
func validateImportItem(item *favSvc.ImportItem) error {
	if err := validation.ValidateStruct(item,
		validation.Field(&item.TempID, validation.Required),
		validation.Field(&item.Name,
			validation.Required,
			validation.Length(1, config.MaxNodeNameLength),
		),
		validation.Field(&item.Kind,
			validation.Required,
			validation.In(models.KindFolder, models.KindReference),
		),
	); err != nil {
		return err
	}

	if item.ParentID != nil && item.ParentTempID != nil {
		return fmt.Errorf("item %q sets both parent_id and parent_temp_id", item.TempID)
	}

	switch item.Kind {
	case models.KindReference:
		if item.Target == "" {
			return fmt.Errorf("item %q is a file and requires a target", item.TempID)
		}
	case models.KindFolder:
		if item.Target != "" {
			return fmt.Errorf("item %q is a folder and cannot carry a target", item.TempID)
		}
	}

	return nil
}
