package core

const (
	IconPlane       Icon = "Plane"
	IconTrain       Icon = "Train"
	IconBus         Icon = "Bus"
	IconCar         Icon = "Car"
	IconHotel       Icon = "Hotel"
	IconUtensils    Icon = "Utensils"
	IconCoffee      Icon = "Coffee"
	IconBeer        Icon = "Beer"
	IconShoppingBag Icon = "ShoppingBag"
	IconCamera      Icon = "Camera"
	IconMapPin      Icon = "MapPin"
	IconMountain    Icon = "Mountain"
	IconSun         Icon = "Sun"
	IconMoon        Icon = "Moon"
	IconUmbrella    Icon = "Umbrella"
	IconMusic       Icon = "Music"
	IconTicket      Icon = "Ticket"
	IconCreditCard  Icon = "CreditCard"
	IconDollarSign  Icon = "DollarSign"
	IconGift        Icon = "Gift"
	IconHeart       Icon = "Heart"
	IconStar        Icon = "Star"
	IconFlag        Icon = "Flag"
	IconAnchor      Icon = "Anchor"
	IconBriefcase   Icon = "Briefcase"
	IconHome        Icon = "Home"
	IconUser        Icon = "User"
	IconUsers       Icon = "Users"
	IconSmartphone  Icon = "Smartphone"
	IconWifi        Icon = "Wifi"
	IconBattery     Icon = "Battery"
	IconWatch       Icon = "Watch"
)

var icons = map[Icon]struct{}{
	IconPlane: {}, IconTrain: {}, IconBus: {}, IconCar: {},
	IconHotel: {}, IconUtensils: {}, IconCoffee: {}, IconBeer: {},
	IconShoppingBag: {}, IconCamera: {}, IconMapPin: {}, IconMountain: {},
	IconSun: {}, IconMoon: {}, IconUmbrella: {}, IconMusic: {},
	IconTicket: {}, IconCreditCard: {}, IconDollarSign: {}, IconGift: {},
	IconHeart: {}, IconStar: {}, IconFlag: {}, IconAnchor: {},
	IconBriefcase: {}, IconHome: {}, IconUser: {}, IconUsers: {},
	IconSmartphone: {}, IconWifi: {}, IconBattery: {}, IconWatch: {},
}

func (i Icon) Valid() bool {
	_, ok := icons[i]
	return ok
}

// NormalizeIcon maps an arbitrary string into the closed icon set,
// falling back to MapPin.
func NormalizeIcon(s string) Icon {
	i := Icon(s)
	if i.Valid() {
		return i
	}
	return IconMapPin
}
