package template

// defaultTemplates is the catalog installed on first boot.
var defaultTemplates = []Template{
	{
		Name:        "NDA",
		Description: "Standard Non-Disclosure Agreement for protecting confidential information.",
		Content: `# NON-DISCLOSURE AGREEMENT

## 1. PARTIES
This Non-Disclosure Agreement (the "Agreement") is entered into between [PARTY A] ("Disclosing Party") and [PARTY B] ("Receiving Party"), collectively referred to as the "Parties."

## 2. PURPOSE
The Parties wish to explore a potential business relationship. In connection with this opportunity, the Disclosing Party may share certain confidential and proprietary information with the Receiving Party.

## 3. CONFIDENTIAL INFORMATION
"Confidential Information" means any information disclosed by the Disclosing Party to the Receiving Party, either directly or indirectly, in writing, orally or by inspection of tangible objects, which is designated as "Confidential," "Proprietary," or some similar designation, or that should reasonably be understood to be confidential given the nature of the information and the circumstances of disclosure.

## 4. OBLIGATIONS
The Receiving Party shall:
a) Maintain the confidentiality of the Confidential Information;
b) Not disclose any Confidential Information to any third party;
c) Use the Confidential Information only for the purpose of evaluating the potential business relationship;
d) Take reasonable measures to protect the secrecy of the Confidential Information.

## 5. TERM
This Agreement shall remain in effect for a period of [TERM] years from the Effective Date.

## 6. GOVERNING LAW
This Agreement shall be governed by the laws of [JURISDICTION].

## 7. EFFECTIVE DATE
This Agreement is effective as of [EFFECTIVE DATE].

AGREED AND ACCEPTED:

[PARTY A]
By: _____________________
Name:
Title:
Date:

[PARTY B]
By: _____________________
Name:
Title:
Date:
`,
	},
	{
		Name:        "Sales Agreement",
		Description: "Standard Sales Agreement for the sale of goods or services.",
		Content: `# SALES AGREEMENT

## 1. PARTIES
This Sales Agreement (the "Agreement") is entered into between [SELLER] ("Seller") and [BUYER] ("Buyer"), collectively referred to as the "Parties."

## 2. GOODS/SERVICES
The Seller agrees to sell and the Buyer agrees to purchase the following goods/services:
[DESCRIPTION OF GOODS/SERVICES]

## 3. PRICE AND PAYMENT
The price for the goods/services shall be [PRICE] plus applicable taxes. Payment shall be made as follows:
[PAYMENT TERMS]

## 4. DELIVERY
Seller shall deliver the goods/services to Buyer on or before [DELIVERY DATE] at [DELIVERY LOCATION].

## 5. WARRANTIES
Seller warrants that the goods/services shall be free from defects in material and workmanship for a period of [WARRANTY PERIOD] from the date of delivery.

## 6. LIMITATION OF LIABILITY
Seller's liability shall not exceed the purchase price of the goods/services.

## 7. TERM AND TERMINATION
This Agreement shall commence on the Effective Date and continue until the obligations of both parties have been fulfilled, unless terminated earlier in accordance with this Agreement.

## 8. GOVERNING LAW
This Agreement shall be governed by the laws of [JURISDICTION].

## 9. EFFECTIVE DATE
This Agreement is effective as of [EFFECTIVE DATE].

AGREED AND ACCEPTED:

[SELLER]
By: _____________________
Name:
Title:
Date:

[BUYER]
By: _____________________
Name:
Title:
Date:
`,
	},
	{
		Name:        "Purchase Order",
		Description: "Standard Purchase Order for ordering goods or services.",
		Content: `# PURCHASE ORDER

## PURCHASE ORDER NO: [PO NUMBER]
## DATE: [DATE]

## BUYER:
[BUYER NAME]
[BUYER ADDRESS]
[BUYER CONTACT INFO]

## SUPPLIER:
[SUPPLIER NAME]
[SUPPLIER ADDRESS]
[SUPPLIER CONTACT INFO]

## DELIVERY INFORMATION:
Delivery Date: [DELIVERY DATE]
Delivery Address: [DELIVERY ADDRESS]
Shipping Method: [SHIPPING METHOD]

## PAYMENT TERMS:
[PAYMENT TERMS]

## ITEMS:

| Item No. | Description | Quantity | Unit Price | Total |
|----------|-------------|----------|------------|-------|
| 1        | [ITEM 1]    | [QTY 1]  | [PRICE 1]  | [TOTAL 1] |
| 2        | [ITEM 2]    | [QTY 2]  | [PRICE 2]  | [TOTAL 2] |
| 3        | [ITEM 3]    | [QTY 3]  | [PRICE 3]  | [TOTAL 3] |

Subtotal: [SUBTOTAL]
Tax: [TAX]
Shipping: [SHIPPING]
**TOTAL**: [GRAND TOTAL]

## SPECIAL INSTRUCTIONS:
[SPECIAL INSTRUCTIONS]

## AUTHORIZATION:

Authorized by: _____________________
Name:
Title:
Date:

## ACCEPTANCE:
By accepting this Purchase Order, the Supplier agrees to the terms and conditions stated herein.

Accepted by: _____________________
Name:
Title:
Date:
`,
	},
}
