package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const defaultImageWorkers = 4

// ImageChange is one row of the product form's image list. ID is zero for
// new images; Deleted marks an existing one for removal.
type ImageChange struct {
	ID          int64  `json:"id,omitempty"`
	URL         string `json:"url"`
	Description string `json:"descripcion,omitempty"`
	Thumbnail   bool   `json:"esMiniatura"`
	Main        bool   `json:"esPrincipal"`
	Deleted     bool   `json:"isDeleted,omitempty"`
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (c ImageChange) image(productID int64) models.ProductImage {
	return models.ProductImage{
		Description: c.Description,
		URL:         c.URL,
		Thumbnail:   flag(c.Thumbnail),
		Main:        flag(c.Main),
		ProductID:   productID,
	}
}

// ProductForm is a product plus the image edits to apply with it.
type ProductForm struct {
	Product models.Product `json:"product"`
	Images  []ImageChange  `json:"images"`
}

func validateImages(changes []ImageChange) error {
	mains := 0
	for i, c := range changes {
		if c.Deleted {
			continue
		}
		if strings.TrimSpace(c.URL) == "" {
			return &FieldError{"imagenes." + strconv.Itoa(i) + ".url", "La URL de la imagen es requerida"}
		}
		if c.Main {
			mains++
		}
	}
	if mains > 1 {
		return &FieldError{"imagenes", "Solo puede haber una imagen principal"}
	}
	return nil
}

// SaveProduct creates the product (ID zero) or updates it, then applies the
// image edits concurrently. The product write is not rolled back when an
// image request fails.
func (s *Service) SaveProduct(ctx context.Context, form ProductForm) (models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "admin.save")
	uid, err := s.authorize()
	if err != nil {
		return models.Product{}, err
	}
	if err := ValidateProduct(form.Product); err != nil {
		return models.Product{}, err
	}
	if err := validateImages(form.Images); err != nil {
		return models.Product{}, err
	}

	editing := form.Product.ID > 0
	failMsg, okMsg := MsgCreate, MsgCreated
	if editing {
		failMsg, okMsg = MsgUpdate, MsgUpdated
	}

	var p models.Product
	if editing {
		p, err = s.update(ctx, uid, form.Product.ID, form.Product)
	} else {
		p, err = s.create(ctx, uid, form.Product)
	}
	if err != nil {
		s.Notices.Error(ctx, failMsg)
		return models.Product{}, err
	}

	if err := s.applyImages(ctx, p.ID, form.Images); err != nil {
		l.Error("save_images_error", "product_id", p.ID, "error", err)
		s.Notices.Error(ctx, failMsg)
		return p, fmt.Errorf("%w: %w", ErrImages, err)
	}

	s.Notices.Success(ctx, okMsg)
	return p, nil
}

func (s *Service) applyImages(ctx context.Context, productID int64, changes []ImageChange) error {
	workers := s.ImageWorkers
	if workers <= 0 {
		workers = defaultImageWorkers
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, c := range changes {
		switch {
		case c.Deleted && c.ID > 0:
			g.Go(func() error { return s.deleteImage(gctx, c.ID) })
		case c.Deleted:
			// never saved
		case c.ID == 0:
			g.Go(func() error {
				_, err := s.createImage(gctx, c.image(productID))
				return err
			})
		default:
			g.Go(func() error {
				_, err := s.updateImage(gctx, c.ID, c.image(0))
				return err
			})
		}
	}
	return g.Wait()
}

type imageEnvelope struct {
	Image models.ProductImage `json:"imagen"`
}

func (s *Service) createImage(ctx context.Context, img models.ProductImage) (models.ProductImage, error) {
	var out imageEnvelope
	if err := s.API.Post(ctx, "/productos-imagenes", img, &out); err != nil {
		return models.ProductImage{}, fmt.Errorf("create image: %w", err)
	}
	return out.Image, nil
}

func (s *Service) updateImage(ctx context.Context, imageID int64, img models.ProductImage) (models.ProductImage, error) {
	var out imageEnvelope
	if err := s.API.Put(ctx, "/productos-imagenes/"+strconv.FormatInt(imageID, 10), img, &out); err != nil {
		return models.ProductImage{}, fmt.Errorf("update image %d: %w", imageID, err)
	}
	return out.Image, nil
}

// deleteImage treats an already missing image as deleted.
func (s *Service) deleteImage(ctx context.Context, imageID int64) error {
	err := s.API.Delete(ctx, "/productos-imagenes/"+strconv.FormatInt(imageID, 10), nil)
	if err != nil && !errors.Is(err, apiclient.ErrNotFound) {
		return fmt.Errorf("delete image %d: %w", imageID, err)
	}
	return nil
}

// CreateImage adds one image to a product.
func (s *Service) CreateImage(ctx context.Context, productID int64, c ImageChange) (models.ProductImage, error) {
	if _, err := s.authorize(); err != nil {
		return models.ProductImage{}, err
	}
	if err := validateImages([]ImageChange{c}); err != nil {
		return models.ProductImage{}, err
	}
	img, err := s.createImage(ctx, c.image(productID))
	if err != nil {
		return models.ProductImage{}, fmt.Errorf("%w: %w", ErrImages, err)
	}
	return img, nil
}

func (s *Service) UpdateImage(ctx context.Context, imageID int64, c ImageChange) (models.ProductImage, error) {
	if _, err := s.authorize(); err != nil {
		return models.ProductImage{}, err
	}
	if err := validateImages([]ImageChange{c}); err != nil {
		return models.ProductImage{}, err
	}
	img, err := s.updateImage(ctx, imageID, c.image(0))
	if err != nil {
		return models.ProductImage{}, notFoundOr(ErrImages, err)
	}
	return img, nil
}

func (s *Service) DeleteImage(ctx context.Context, imageID int64) error {
	if _, err := s.authorize(); err != nil {
		return err
	}
	if err := s.deleteImage(ctx, imageID); err != nil {
		return fmt.Errorf("%w: %w", ErrImages, err)
	}
	return nil
}
