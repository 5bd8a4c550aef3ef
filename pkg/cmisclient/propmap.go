package cmisclient

// propertyDef couples the repository-qualified name of a domain field with
// its repository-native scalar type.
type propertyDef struct {
	Name string
	Type PropertyType
}

// One table per object kind. Domain fields that do not appear in a table are
// intentionally dropped on write and absent on read; this filtering is a
// data-shaping decision, not an error.
var documentMap = map[string]propertyDef{
	"object_type_id":              {"cmis:objectTypeId", TypeID},
	"uuid":                        {"drc:document__uuid", TypeString},
	"identificatie":               {"drc:document__identificatie", TypeString},
	"bronorganisatie":             {"drc:document__bronorganisatie", TypeString},
	"creatiedatum":                {"drc:document__creatiedatum", TypeDateTime},
	"titel":                       {"drc:document__titel", TypeString},
	"vertrouwelijkheidaanduiding": {"drc:document__vertrouwelijkaanduiding", TypeString},
	"auteur":                      {"drc:document__auteur", TypeString},
	"status":                      {"drc:document__status", TypeString},
	"beschrijving":                {"drc:document__beschrijving", TypeString},
	"ontvangstdatum":              {"drc:document__ontvangstdatum", TypeDateTime},
	"verzenddatum":                {"drc:document__verzenddatum", TypeDateTime},
	"indicatie_gebruiksrecht":     {"drc:document__indicatiegebruiksrecht", TypeString},
	"ondertekening_soort":         {"drc:document__ondertekeningsoort", TypeString},
	"ondertekening_datum":         {"drc:document__ondertekeningdatum", TypeDateTime},
	"informatieobjecttype":        {"drc:document__informatieobjecttype", TypeString},
	"formaat":                     {"drc:document__formaat", TypeString},
	"taal":                        {"drc:document__taal", TypeString},
	"bestandsnaam":                {"drc:document__bestandsnaam", TypeString},
	"bestandsomvang":              {"drc:document__bestandsomvang", TypeInteger},
	"versie":                      {"drc:document__versie", TypeDecimal},
	"link":                        {"drc:document__link", TypeString},
	"integriteit_algoritme":       {"drc:document__integriteitalgoritme", TypeString},
	"integriteit_waarde":          {"drc:document__integriteitwaarde", TypeString},
	"integriteit_datum":           {"drc:document__integriteitdatum", TypeDateTime},
	"verwijderd":                  {"drc:document__verwijderd", TypeBoolean},
	"begin_registratie":           {"drc:document__begin_registratie", TypeDateTime},
	"lock":                        {"drc:document__lock", TypeString},
	"kopie_van":                   {"drc:document__kopie_van", TypeString},
}

var gebruiksrechtenMap = map[string]propertyDef{
	"object_type_id":           {"cmis:objectTypeId", TypeID},
	"uuid":                     {"drc:gebruiksrechten__uuid", TypeString},
	"informatieobject":         {"drc:gebruiksrechten__informatieobject", TypeString},
	"omschrijving_voorwaarden": {"drc:gebruiksrechten__omschrijvingvoorwaarden", TypeString},
	"startdatum":               {"drc:gebruiksrechten__startdatum", TypeDateTime},
	"einddatum":                {"drc:gebruiksrechten__einddatum", TypeDateTime},
	"kopie_van":                {"drc:gebruiksrechten__kopievan", TypeString},
}

var oioMap = map[string]propertyDef{
	"object_type_id":   {"cmis:objectTypeId", TypeID},
	"uuid":             {"drc:oio__uuid", TypeString},
	"informatieobject": {"drc:oio__informatieobject", TypeString},
	"object_type":      {"drc:oio__object_type", TypeString},
	"zaak":             {"drc:oio__zaak", TypeString},
	"besluit":          {"drc:oio__besluit", TypeString},
	"verzoek":          {"drc:oio__verzoek", TypeString},
}

var verzendingMap = map[string]propertyDef{
	"object_type_id":   {"cmis:objectTypeId", TypeID},
	"uuid":             {"drc:verzending__uuid", TypeString},
	"informatieobject": {"drc:verzending__informatieobject", TypeString},
	"betrokkene":       {"drc:verzending__betrokkene", TypeString},
	"aard_relatie":     {"drc:verzending__aardrelatie", TypeString},
	"toelichting":      {"drc:verzending__toelichting", TypeString},
	"ontvangstdatum":   {"drc:verzending__ontvangstdatum", TypeDateTime},
	"verzenddatum":     {"drc:verzending__verzenddatum", TypeDateTime},
	"contact_persoon":  {"drc:verzending__contactpersoon", TypeString},
	"contactpersoonnaam": {"drc:verzending__contactpersoonnaam", TypeString},
	"binnenlands_correspondentieadres_huisletter":             {"drc:verzending__binnenlandsadreshuisletter", TypeString},
	"binnenlands_correspondentieadres_huisnummer":             {"drc:verzending__binnenlandsadreshuisnummer", TypeInteger},
	"binnenlands_correspondentieadres_huisnummer_toevoeging":  {"drc:verzending__binnenlandsadreshuisnummertoevoeging", TypeString},
	"binnenlands_correspondentieadres_naam_openbare_ruimte":   {"drc:verzending__binnenlandsadresopenbareruimte", TypeString},
	"binnenlands_correspondentieadres_postcode":               {"drc:verzending__binnenlandsadrespostcode", TypeString},
	"binnenlands_correspondentieadres_woonplaatsnaam":         {"drc:verzending__binnenlandsadreswoonplaats", TypeString},
	"buitenlands_correspondentieadres_adres_buitenland_1":     {"drc:verzending__buitenlandsadres1", TypeString},
	"buitenlands_correspondentieadres_adres_buitenland_2":     {"drc:verzending__buitenlandsadres2", TypeString},
	"buitenlands_correspondentieadres_adres_buitenland_3":     {"drc:verzending__buitenlandsadres3", TypeString},
	"buitenlands_correspondentieadres_land_postadres":         {"drc:verzending__buitenlandsadresland", TypeString},
	"correspondentie_postadres_postbus_of_antwoord_nummer":    {"drc:verzending__postadresnummer", TypeInteger},
	"correspondentie_postadres_postcode":                      {"drc:verzending__postadrespostcode", TypeString},
	"correspondentie_postadres_postadrestype":                 {"drc:verzending__postadrestype", TypeString},
	"correspondentie_postadres_woonplaatsnaam":                {"drc:verzending__postadreswoonplaats", TypeString},
	"faxnummer":        {"drc:verzending__faxnummer", TypeString},
	"emailadres":       {"drc:verzending__emailadres", TypeString},
	"mijn_overheid":    {"drc:verzending__mijnoverheid", TypeBoolean},
	"telefoonnummer":   {"drc:verzending__telefoonnummer", TypeString},
	"kopie_van":        {"drc:verzending__kopievan", TypeString},
}

var zaakFolderMap = map[string]propertyDef{
	"object_type_id":  {"cmis:objectTypeId", TypeID},
	"url":             {"drc:zaak__url", TypeString},
	"identificatie":   {"drc:zaak__identificatie", TypeString},
	"zaaktype":        {"drc:zaak__zaaktype", TypeString},
	"bronorganisatie": {"drc:zaak__bronorganisatie", TypeString},
}

var zaakTypeFolderMap = map[string]propertyDef{
	"object_type_id": {"cmis:objectTypeId", TypeID},
	"url":            {"drc:zaaktype__url", TypeString},
	"identificatie":  {"drc:zaaktype__identificatie", TypeString},
}

var kindMaps = map[ObjectKind]map[string]propertyDef{
	KindDocument:        documentMap,
	KindGebruiksrechten: gebruiksrechtenMap,
	KindOio:             oioMap,
	KindVerzending:      verzendingMap,
	KindZaakFolder:      zaakFolderMap,
	KindZaakTypeFolder:  zaakTypeFolderMap,
}

// reverseMaps is derived from kindMaps at init time.
var reverseMaps = func() map[ObjectKind]map[string]string {
	out := make(map[ObjectKind]map[string]string, len(kindMaps))
	for kind, m := range kindMaps {
		rev := make(map[string]string, len(m))
		for domain, def := range m {
			rev[def.Name] = domain
		}
		out[kind] = rev
	}
	return out
}()

// ToRepository maps a domain field name to its repository-qualified property
// name for the given object kind. Unknown keys report absent, never an error.
func ToRepository(key string, kind ObjectKind) (string, bool) {
	m, ok := kindMaps[kind]
	if !ok {
		return "", false
	}
	def, ok := m[key]
	if !ok {
		return "", false
	}
	return def.Name, true
}

// ToDomain maps a repository-qualified property name back to the domain
// field name for the given object kind.
func ToDomain(qualified string, kind ObjectKind) (string, bool) {
	m, ok := reverseMaps[kind]
	if !ok {
		return "", false
	}
	key, ok := m[qualified]
	return key, ok
}

// TypeOf returns the repository scalar type of a mapped domain field.
func TypeOf(key string, kind ObjectKind) (PropertyType, bool) {
	m, ok := kindMaps[kind]
	if !ok {
		return "", false
	}
	def, ok := m[key]
	if !ok {
		return "", false
	}
	return def.Type, true
}

// mappedKeys returns the domain keys of a kind's table, for tests and for
// diffing complete property sets.
func mappedKeys(kind ObjectKind) []string {
	m := kindMaps[kind]
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
