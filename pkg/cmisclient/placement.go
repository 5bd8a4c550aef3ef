package cmisclient

import (
	"context"
	"fmt"
)

// Folder names used by the placement scheme. Documents without a case
// relation live in a date-partitioned tree under the base folder; their
// secondary objects live in a sibling "Related data" folder.
const (
	documentsFolderName   = "Documents"
	relatedDataFolderName = "Related data"
)

// folderPath walks (and creates) a chain of plain folders under start.
func (c *Client) folderPath(ctx context.Context, start *Folder, names ...string) (*Folder, error) {
	current := start
	for _, name := range names {
		next, err := c.GetOrCreateFolder(ctx, current, name, nil)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// dayFolder returns the base/{year}/{month}/{day} folder for the client's
// current clock time.
func (c *Client) dayFolder(ctx context.Context) (*Folder, error) {
	base, err := c.BaseFolder(ctx)
	if err != nil {
		return nil, err
	}
	return c.folderPath(ctx, base, datePath(c.clock())...)
}

// TempDocumentFolder returns the date-partitioned folder where unrelated
// documents are filed on creation.
func (c *Client) TempDocumentFolder(ctx context.Context) (*Folder, error) {
	day, err := c.dayFolder(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetOrCreateFolder(ctx, day, documentsFolderName, nil)
}

// TempRelatedDataFolder returns the date-partitioned folder where secondary
// objects of unrelated documents are filed.
func (c *Client) TempRelatedDataFolder(ctx context.Context) (*Folder, error) {
	day, err := c.dayFolder(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetOrCreateFolder(ctx, day, relatedDataFolderName, nil)
}

// RelatedDataFolder returns the "Related data" folder inside the given
// parent, creating it when absent.
func (c *Client) RelatedDataFolder(ctx context.Context, parent *Folder) (*Folder, error) {
	return c.GetOrCreateFolder(ctx, parent, relatedDataFolderName, nil)
}

// zaakTypeFolderName renders the folder name of a case type.
func zaakTypeFolderName(zt *ZaakTypeInfo) string {
	return fmt.Sprintf("zaaktype-%s-%s", zt.Omschrijving, zt.Identificatie)
}

// zaakFolderName renders the folder name of a case.
func zaakFolderName(z *ZaakInfo) string {
	return fmt.Sprintf("zaak-%s", z.Identificatie)
}

// ZaakTypeFolder returns the folder of a case type under the base folder,
// creating it with the case type's identifying properties when absent.
func (c *Client) ZaakTypeFolder(ctx context.Context, zt *ZaakTypeInfo) (*Folder, error) {
	base, err := c.BaseFolder(ctx)
	if err != nil {
		return nil, err
	}
	props := c.buildProperties(KindZaakTypeFolder, map[string]any{
		"url":           zt.URL,
		"identificatie": zt.Identificatie,
	})
	props["cmis:objectTypeId"] = Property{Value: c.objectTypeID(KindZaakTypeFolder), Type: TypeID}
	return c.GetOrCreateFolder(ctx, base, zaakTypeFolderName(zt), props)
}

// ZaakFolder returns the folder of a case under its case type folder,
// creating both when absent.
func (c *Client) ZaakFolder(ctx context.Context, zaak *ZaakInfo, zt *ZaakTypeInfo) (*Folder, error) {
	parent, err := c.ZaakTypeFolder(ctx, zt)
	if err != nil {
		return nil, err
	}
	props := c.buildProperties(KindZaakFolder, map[string]any{
		"url":             zaak.URL,
		"identificatie":   zaak.Identificatie,
		"zaaktype":        zaak.ZaakTypeURL,
		"bronorganisatie": zaak.Bronorganisatie,
	})
	props["cmis:objectTypeId"] = Property{Value: c.objectTypeID(KindZaakFolder), Type: TypeID}
	return c.GetOrCreateFolder(ctx, parent, zaakFolderName(zaak), props)
}

// DeleteBaseFolderContents removes everything filed under the base folder by
// deleting its tree. The cached base folder is dropped, so the next operation
// recreates it empty.
func (c *Client) DeleteBaseFolderContents(ctx context.Context) error {
	base, err := c.BaseFolder(ctx)
	if err != nil {
		return err
	}
	if err := base.DeleteTree(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	c.baseFolder = nil
	c.mu.Unlock()
	return nil
}

// ZaakDayFolder returns the date-partitioned folder inside a case folder
// where newly related documents are filed.
func (c *Client) ZaakDayFolder(ctx context.Context, zaak *ZaakInfo, zt *ZaakTypeInfo) (*Folder, error) {
	zaakFolder, err := c.ZaakFolder(ctx, zaak, zt)
	if err != nil {
		return nil, err
	}
	return c.folderPath(ctx, zaakFolder, datePath(c.clock())...)
}
